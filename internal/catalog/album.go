package catalog

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// A feature is any song with "feat" in its name, in any case.
const (
	featureCond    = "LOWER(songs.name) LIKE ?"
	featurePattern = "%feat%"
)

type Album struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"size:50;not null" json:"name"`
	BandID        uint   `gorm:"not null;index" json:"band_id"`
	PurchaseCount uint   `gorm:"not null;default:0" json:"purchase_count"`
	Timestamps

	Genres []Genre `gorm:"many2many:album_genres;constraint:OnDelete:CASCADE" json:"genres,omitempty"`
	Songs  []Song  `gorm:"constraint:OnDelete:CASCADE" json:"songs,omitempty"`
}

func (a Album) String() string { return a.Name }

func (a *Album) BeforeSave(tx *gorm.DB) error {
	if err := checkName("album name", a.Name, 50); err != nil {
		return err
	}
	return checkParent(tx, &Band{}, a.BandID, "band")
}

func TopAlbums(db *gorm.DB) ([]Album, error) {
	var albums []Album
	err := db.Order("purchase_count DESC").Order("id").Limit(topN).Find(&albums).Error
	return albums, err
}

func (a *Album) songs(db *gorm.DB) *gorm.DB {
	return db.Model(&Song{}).Where("songs.album_id = ?", a.ID)
}

func (a *Album) Singles(db *gorm.DB) ([]Song, error) {
	var songs []Song
	err := a.songs(db).Where("songs.is_single = ?", true).Order("songs.id").Find(&songs).Error
	return songs, err
}

func (a *Album) Features(db *gorm.DB) ([]Song, error) {
	var songs []Song
	err := a.songs(db).Where(featureCond, featurePattern).Order("songs.id").Find(&songs).Error
	return songs, err
}

func (a *Album) TopSingle(db *gorm.DB) (*Song, error) {
	return firstSong(a.songs(db).Where("songs.is_single = ?", true))
}

// Price sums the album's song prices. It is null, not zero, for an album
// with no songs.
func (a *Album) Price(db *gorm.DB) (decimal.NullDecimal, error) {
	var total decimal.NullDecimal
	err := a.songs(db).Select("SUM(songs.price)").Row().Scan(&total)
	return roundNull(total), err
}
