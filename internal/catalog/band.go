package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Band struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
	Timestamps

	Genres  []Genre      `gorm:"many2many:band_genres;constraint:OnDelete:CASCADE" json:"genres,omitempty"`
	Albums  []Album      `gorm:"constraint:OnDelete:CASCADE" json:"albums,omitempty"`
	Members []BandMember `gorm:"constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (b Band) String() string { return b.Name }

func (b *Band) BeforeSave(*gorm.DB) error {
	return checkName("band name", b.Name, 50)
}

type BandMember struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"size:40;not null" json:"first_name"`
	LastName  string `gorm:"size:40;not null" json:"last_name"`
	BandID    uint   `gorm:"not null;index" json:"band_id"`
	Timestamps
}

func (m BandMember) String() string {
	return fmt.Sprintf("%s %s", m.FirstName, m.LastName)
}

func (m *BandMember) BeforeSave(tx *gorm.DB) error {
	if err := checkName("first name", m.FirstName, 40); err != nil {
		return err
	}
	if err := checkName("last name", m.LastName, 40); err != nil {
		return err
	}
	return checkParent(tx, &Band{}, m.BandID, "band")
}

// BandRevenue is one row of TopBands. Revenue is null for bands with no songs.
type BandRevenue struct {
	Band    Band                `json:"band"`
	Revenue decimal.NullDecimal `json:"revenue"`
}

const revenueExpr = "SUM(songs.price * songs.purchase_count)"

type revenueRow struct {
	BandID      uint
	SongRevenue decimal.NullDecimal
}

// TopBands ranks bands by total song revenue. Bands without songs sort last.
func TopBands(db *gorm.DB) ([]BandRevenue, error) {
	var rows []revenueRow
	err := db.Table("bands").
		Select("bands.id AS band_id, " + revenueExpr + " AS song_revenue").
		Joins("LEFT JOIN albums ON albums.band_id = bands.id").
		Joins("LEFT JOIN songs ON songs.album_id = albums.id").
		Group("bands.id").
		Order(revenueExpr + " IS NULL").
		Order(revenueExpr + " DESC").
		Order("bands.id").
		Limit(topN).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.BandID
	}
	var bands []Band
	if err := db.Where("id IN ?", ids).Find(&bands).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]Band, len(bands))
	for _, b := range bands {
		byID[b.ID] = b
	}

	out := make([]BandRevenue, 0, len(rows))
	for _, r := range rows {
		b, ok := byID[r.BandID]
		if !ok {
			// deleted between the two queries
			continue
		}
		out = append(out, BandRevenue{Band: b, Revenue: roundNull(r.SongRevenue)})
	}
	return out, nil
}

// Revenue is the band's total song revenue, null when it has no songs.
func (b *Band) Revenue(db *gorm.DB) (decimal.NullDecimal, error) {
	var total decimal.NullDecimal
	err := db.Table("songs").
		Select(revenueExpr).
		Joins("JOIN albums ON albums.id = songs.album_id").
		Where("albums.band_id = ?", b.ID).
		Row().Scan(&total)
	return roundNull(total), err
}

func (b *Band) ListMembers(db *gorm.DB) ([]BandMember, error) {
	var members []BandMember
	err := db.Where("band_id = ?", b.ID).Order("id").Find(&members).Error
	return members, err
}

func (b *Band) songs(db *gorm.DB) *gorm.DB {
	return db.Model(&Song{}).
		Select("songs.*").
		Joins("JOIN albums ON albums.id = songs.album_id").
		Where("albums.band_id = ?", b.ID)
}

func (b *Band) Singles(db *gorm.DB) ([]Song, error) {
	var songs []Song
	err := b.songs(db).Where("songs.is_single = ?", true).Order("songs.id").Find(&songs).Error
	return songs, err
}

func (b *Band) Features(db *gorm.DB) ([]Song, error) {
	var songs []Song
	err := b.songs(db).Where(featureCond, featurePattern).Order("songs.id").Find(&songs).Error
	return songs, err
}

func (b *Band) TopSingle(db *gorm.DB) (*Song, error) {
	return firstSong(b.songs(db).Where("songs.is_single = ?", true))
}

func (b *Band) TopFeature(db *gorm.DB) (*Song, error) {
	return firstSong(b.songs(db).Where(featureCond, featurePattern))
}

// firstSong returns the best selling song of q, or nil when q is empty.
func firstSong(q *gorm.DB) (*Song, error) {
	var s Song
	err := q.Order("songs.purchase_count DESC").Order("songs.id").Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// roundNull trims float noise from drivers that sum decimals as REAL.
func roundNull(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid {
		d.Decimal = d.Decimal.Round(3)
	}
	return d
}
