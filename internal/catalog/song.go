package catalog

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Song struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	AlbumID       uint            `gorm:"not null;index" json:"album_id"`
	Price         decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"price"`
	PurchaseCount uint            `gorm:"not null;default:0" json:"purchase_count"`
	IsSingle      bool            `gorm:"not null" json:"is_single"`
	Timestamps

	Genres []Genre `gorm:"many2many:song_genres;constraint:OnDelete:CASCADE" json:"genres,omitempty"`
}

func (s Song) String() string { return s.Name }

func (s *Song) BeforeSave(tx *gorm.DB) error {
	if err := checkName("song name", s.Name, 100); err != nil {
		return err
	}
	if err := checkPrice(s.Price); err != nil {
		return err
	}
	return checkParent(tx, &Album{}, s.AlbumID, "album")
}

// Revenue is price times purchase count for this song alone.
func (s Song) Revenue() decimal.Decimal {
	return s.Price.Mul(decimal.NewFromInt(int64(s.PurchaseCount)))
}

func TopSongs(db *gorm.DB) ([]Song, error) {
	var songs []Song
	err := db.Order("purchase_count DESC").Order("id").Limit(topN).Find(&songs).Error
	return songs, err
}
