package catalog

import (
	"gorm.io/gorm"
)

// GenreBy selects what TopGenres ranks by.
type GenreBy int

const (
	GenreByAlbum GenreBy = iota + 1
	GenreBySong
	GenreByRevenue
)

func (b GenreBy) String() string {
	switch b {
	case GenreByAlbum:
		return "album"
	case GenreBySong:
		return "song"
	case GenreByRevenue:
		return "revenue"
	default:
		return "unknown"
	}
}

// ParseGenreBy returns the zero GenreBy for unknown names.
func ParseGenreBy(s string) GenreBy {
	switch s {
	case "album":
		return GenreByAlbum
	case "song":
		return GenreBySong
	case "revenue":
		return GenreByRevenue
	}
	return 0
}

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
	Timestamps
}

func (g Genre) String() string { return g.Name }

func (g *Genre) BeforeSave(*gorm.DB) error {
	return checkName("genre name", g.Name, 50)
}

// TopGenres does not aggregate yet: every defined mode returns all genres
// in storage order.
func TopGenres(db *gorm.DB, by GenreBy) ([]Genre, error) {
	var q *gorm.DB
	switch by {
	case GenreByAlbum:
		q = db.Model(&Genre{})
	case GenreBySong:
		q = db.Model(&Genre{})
	case GenreByRevenue:
		q = db.Model(&Genre{})
	default:
		return nil, ErrNotImplemented
	}

	var genres []Genre
	if err := q.Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

func (g *Genre) Bands(db *gorm.DB) ([]Band, error) {
	var bands []Band
	err := db.
		Joins("JOIN band_genres ON band_genres.band_id = bands.id").
		Where("band_genres.genre_id = ?", g.ID).
		Order("bands.id").
		Find(&bands).Error
	return bands, err
}

func (g *Genre) Albums(db *gorm.DB) ([]Album, error) {
	var albums []Album
	err := db.
		Joins("JOIN album_genres ON album_genres.album_id = albums.id").
		Where("album_genres.genre_id = ?", g.ID).
		Order("albums.id").
		Find(&albums).Error
	return albums, err
}

func (g *Genre) Songs(db *gorm.DB) ([]Song, error) {
	var songs []Song
	err := db.
		Joins("JOIN song_genres ON song_genres.song_id = songs.id").
		Where("song_genres.genre_id = ?", g.ID).
		Order("songs.id").
		Find(&songs).Error
	return songs, err
}
