package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/bihua-university/catalog/internal/admin"
	"github.com/bihua-university/catalog/internal/base"
	"github.com/bihua-university/catalog/internal/catalog"
	"github.com/bihua-university/catalog/internal/semver"
)

func main() {
	base.InitConfig()
	cfg := base.Config

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := catalog.Open(cfg.DBDriver, cfg.DSN, cfg.Debug)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := catalog.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	catalog.RegisterMetrics(prometheus.DefaultRegisterer)
	admin.RegisterMetrics(prometheus.DefaultRegisterer)

	g, _, err := newRouter(db, cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("catalog admin listening on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, g))
}

func newRouter(db *gorm.DB, cfg base.Settings) (*gin.Engine, *Hub, error) {
	minVersion, ok := semver.Parse(cfg.MinClientVersion)
	if !ok {
		return nil, nil, fmt.Errorf("admin.min_client_version %q is not a version", cfg.MinClientVersion)
	}

	hub := NewHub()
	rankings := catalog.NewRankings(db, cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	site := admin.New(db,
		admin.WithToken(cfg.AdminToken),
		admin.WithMinClientVersion(minVersion),
		admin.WithRankings(rankings),
		admin.WithNotifier(hub),
		admin.WithNotifier(admin.NotifierFunc(func(e admin.Event) {
			if cfg.Debug {
				log.Printf("admin: %s %s %d", e.Action, e.Model, e.ID)
			}
		})),
	)
	registerModels(site)

	g := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization",
		admin.ClientVersionHeader, admin.RequestIDHeader,
	}
	g.Use(cors.New(corsConfig))

	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := g.Group("/admin")
	site.Mount(group)
	group.GET("/events", hub.Serve)

	return g, hub, nil
}
