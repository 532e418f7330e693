package catalog

import (
	"fmt"

	"gorm.io/gorm"
)

// The Delete functions remove dependent rows themselves instead of relying on
// ON DELETE CASCADE, which SQLite only honours with foreign_keys enabled.
// Genres are never deleted by an owner; only their link rows go.

func DeleteBand(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &Band{}, id); err != nil {
			return err
		}
		albums := tx.Model(&Album{}).Select("id").Where("band_id = ?", id)
		songs := tx.Model(&Song{}).Select("id").Where("album_id IN (?)", albums)

		err := execAll(tx,
			stmt{"DELETE FROM song_genres WHERE song_id IN (?)", songs},
			stmt{"DELETE FROM songs WHERE album_id IN (?)", albums},
			stmt{"DELETE FROM album_genres WHERE album_id IN (?)", albums},
			stmt{"DELETE FROM albums WHERE band_id = ?", id},
			stmt{"DELETE FROM band_members WHERE band_id = ?", id},
			stmt{"DELETE FROM band_genres WHERE band_id = ?", id},
			stmt{"DELETE FROM bands WHERE id = ?", id},
		)
		if err != nil {
			return fmt.Errorf("delete band %d: %w", id, err)
		}
		return nil
	})
}

func DeleteAlbum(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &Album{}, id); err != nil {
			return err
		}
		songs := tx.Model(&Song{}).Select("id").Where("album_id = ?", id)

		err := execAll(tx,
			stmt{"DELETE FROM song_genres WHERE song_id IN (?)", songs},
			stmt{"DELETE FROM songs WHERE album_id = ?", id},
			stmt{"DELETE FROM album_genres WHERE album_id = ?", id},
			stmt{"DELETE FROM albums WHERE id = ?", id},
		)
		if err != nil {
			return fmt.Errorf("delete album %d: %w", id, err)
		}
		return nil
	})
}

func DeleteSong(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &Song{}, id); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM song_genres WHERE song_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Song{}, id).Error
	})
}

func DeleteBandMember(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &BandMember{}, id); err != nil {
			return err
		}
		return tx.Delete(&BandMember{}, id).Error
	})
}

// DeleteGenre untags everything carrying the genre, then removes it.
func DeleteGenre(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &Genre{}, id); err != nil {
			return err
		}
		for _, table := range []string{"band_genres", "album_genres", "song_genres"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE genre_id = ?", id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Genre{}, id).Error
	})
}

// Tagged is a model that carries a Genres many-to-many association.
type Tagged interface {
	*Band | *Album | *Song
}

// SetGenres replaces the genre tags of owner, which must already be loaded.
func SetGenres[T Tagged](db *gorm.DB, owner T, genreIDs []uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var genres []Genre
		if len(genreIDs) > 0 {
			if err := tx.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
				return err
			}
		}
		if len(genres) != len(uniq(genreIDs)) {
			return fmt.Errorf("set genres: %w", gorm.ErrRecordNotFound)
		}
		return tx.Model(owner).Association("Genres").Replace(genres)
	})
}

type stmt struct {
	sql string
	arg any
}

func execAll(tx *gorm.DB, stmts ...stmt) error {
	for _, s := range stmts {
		if err := tx.Exec(s.sql, s.arg).Error; err != nil {
			return err
		}
	}
	return nil
}

func exists(tx *gorm.DB, model any, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func uniq(ids []uint) map[uint]struct{} {
	m := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
