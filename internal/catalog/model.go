package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidPrice   = errors.New("invalid price")
)

// topN is the length of every ranking.
const topN = 10

// Timestamps is embedded by every model; GORM owns both columns.
type Timestamps struct {
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	ModifiedAt time.Time `gorm:"autoUpdateTime" json:"modified_at"`
}

// maxPrice is the largest value a decimal(6,3) column holds.
var maxPrice = decimal.RequireFromString("999.999")

func checkName(field, name string, max int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidName, field)
	}
	if n := utf8.RuneCountInString(name); n > max {
		return fmt.Errorf("%w: %s has %d characters, max %d", ErrInvalidName, field, n, max)
	}
	return nil
}

func checkPrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return fmt.Errorf("%w: %s is negative", ErrInvalidPrice, p)
	case p.GreaterThan(maxPrice):
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidPrice, p, maxPrice)
	case !p.Equal(p.Truncate(3)):
		return fmt.Errorf("%w: %s has more than 3 decimal places", ErrInvalidPrice, p)
	}
	return nil
}

// checkParent reports a missing owner row the same way on every driver,
// whether or not the database enforces foreign keys.
func checkParent(tx *gorm.DB, model any, id uint, what string) error {
	if id == 0 {
		return fmt.Errorf("%w: %s is required", gorm.ErrInvalidValue, what)
	}
	var n int64
	err := tx.Session(&gorm.Session{NewDB: true}).Model(model).Where("id = ?", id).Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d does not exist", gorm.ErrForeignKeyViolated, what, id)
	}
	return nil
}
