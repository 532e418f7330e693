package main

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bihua-university/catalog/internal/admin"
	"github.com/bihua-university/catalog/internal/catalog"
)

func registerModels(site *admin.Site) {
	admin.Register(site, admin.Resource[catalog.Album]{
		Name:     "albums",
		Preload:  []string{"Genres", "Songs"},
		Delete:   catalog.DeleteAlbum,
		Tag:      catalog.SetGenres[*catalog.Album],
		Describe: describeAlbum,
	})
	admin.Register(site, admin.Resource[catalog.Song]{
		Name:     "songs",
		Preload:  []string{"Genres"},
		Required: []string{"price", "is_single"},
		Delete:  catalog.DeleteSong,
		Tag:     catalog.SetGenres[*catalog.Song],
		Describe: func(_ *gorm.DB, s *catalog.Song) (gin.H, error) {
			return gin.H{"revenue": s.Revenue()}, nil
		},
	})
	admin.Register(site, admin.Resource[catalog.Band]{
		Name:     "bands",
		Preload:  []string{"Genres", "Albums", "Members"},
		Delete:   catalog.DeleteBand,
		Tag:      catalog.SetGenres[*catalog.Band],
		Describe: describeBand,
	})
	admin.Register(site, admin.Resource[catalog.BandMember]{
		Name:   "band-members",
		Delete: catalog.DeleteBandMember,
	})
	admin.Register(site, admin.Resource[catalog.Genre]{
		Name:   "genres",
		Delete: catalog.DeleteGenre,
	})
}

func describeAlbum(db *gorm.DB, a *catalog.Album) (gin.H, error) {
	price, err := a.Price(db)
	if err != nil {
		return nil, err
	}
	singles, err := a.Singles(db)
	if err != nil {
		return nil, err
	}
	features, err := a.Features(db)
	if err != nil {
		return nil, err
	}
	top, err := a.TopSingle(db)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"price":      price,
		"singles":    singles,
		"features":   features,
		"top_single": top,
	}, nil
}

func describeBand(db *gorm.DB, b *catalog.Band) (gin.H, error) {
	revenue, err := b.Revenue(db)
	if err != nil {
		return nil, err
	}
	singles, err := b.Singles(db)
	if err != nil {
		return nil, err
	}
	features, err := b.Features(db)
	if err != nil {
		return nil, err
	}
	topSingle, err := b.TopSingle(db)
	if err != nil {
		return nil, err
	}
	topFeature, err := b.TopFeature(db)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"revenue":     revenue,
		"singles":     singles,
		"features":    features,
		"top_single":  topSingle,
		"top_feature": topFeature,
	}, nil
}
