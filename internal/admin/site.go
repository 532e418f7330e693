// Package admin serves generic JSON CRUD screens for registered GORM models.
package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/bihua-university/catalog/internal/catalog"
	"github.com/bihua-university/catalog/internal/semver"
)

var writes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_admin_writes_total",
		Help: "Successful admin writes by model and action",
	},
	[]string{"model", "action"},
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(writes)
}

// Event describes one successful admin write.
type Event struct {
	Action string `json:"action"`
	Model  string `json:"model"`
	ID     uint   `json:"id"`
}

const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
	Tagged  = "tagged"
)

type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type Site struct {
	db         *gorm.DB
	token      string
	minVersion semver.Version
	rankings   *catalog.Rankings
	notifiers  []Notifier
	resources  []resource
}

type Option func(*Site)

// WithToken requires "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(s *Site) { s.token = token }
}

// WithMinClientVersion rejects clients announcing an older
// Catalog-Client-Version.
func WithMinClientVersion(v semver.Version) Option {
	return func(s *Site) { s.minVersion = v }
}

func WithRankings(r *catalog.Rankings) Option {
	return func(s *Site) { s.rankings = r }
}

func WithNotifier(n Notifier) Option {
	return func(s *Site) { s.notifiers = append(s.notifiers, n) }
}

func New(db *gorm.DB, opts ...Option) *Site {
	s := &Site{db: db}
	for _, o := range opts {
		o(s)
	}
	if s.rankings == nil {
		s.rankings = catalog.NewRankings(db, 16, time.Minute)
	}
	return s
}

// Mount installs the admin routes on g.
func (s *Site) Mount(g *gin.RouterGroup) {
	g.Use(requestID(), s.authorize(), s.checkVersion())

	g.GET("/", s.index)
	g.GET("/rankings/:kind", s.ranking)
	for _, r := range s.resources {
		r.mount(g.Group("/" + r.name()))
	}
}

func (s *Site) Models() []string {
	names := make([]string, len(s.resources))
	for i, r := range s.resources {
		names[i] = r.name()
	}
	return names
}

func (s *Site) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.Models()})
}

func (s *Site) ranking(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		data any
		err  error
	)
	switch c.Param("kind") {
	case "albums":
		data, err = s.rankings.Albums(ctx)
	case "songs":
		data, err = s.rankings.Songs(ctx)
	case "bands":
		data, err = s.rankings.Bands(ctx)
	case "genres":
		data, err = s.rankings.Genres(ctx, catalog.ParseGenreBy(c.Query("by")))
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ranking"})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Site) publish(e Event) {
	writes.WithLabelValues(e.Model, e.Action).Inc()
	s.rankings.Invalidate()
	for _, n := range s.notifiers {
		n.Notify(e)
	}
}

var errBadRequest = errors.New("bad request")

// fail maps catalog and gorm errors to a status code.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrNotImplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, gorm.ErrInvalidValue),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrDuplicatedKey):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
