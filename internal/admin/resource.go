package admin

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Resource describes how one model is exposed. Only Name is required.
type Resource[T any] struct {
	Name string
	// Preload lists associations loaded on the detail screen.
	Preload []string
	// Delete replaces the plain row delete, e.g. to cascade.
	Delete func(db *gorm.DB, id uint) error
	// Tag enables PUT /:id/genres.
	Tag func(db *gorm.DB, obj *T, genreIDs []uint) error
	// Describe adds derived, read-only fields to the detail screen.
	Describe func(db *gorm.DB, obj *T) (gin.H, error)
	// Required lists body keys a create must carry, for fields whose
	// zero value is a legal row.
	Required []string
}

type resource interface {
	name() string
	mount(g *gin.RouterGroup)
}

// Register exposes T under /<r.Name>.
func Register[T any](s *Site, r Resource[T]) {
	refused := append([]string(nil), readOnly...)
	refused = append(refused, associationKeys(s.db, new(T))...)
	s.resources = append(s.resources, &handler[T]{Resource: r, site: s, refused: refused})
}

// readOnly fields belong to the database, never to the request body.
var readOnly = []string{"id", "created_at", "modified_at"}

// associationKeys returns the JSON names of model's relations. Writes
// omit associations, so accepting them would echo rows never stored.
func associationKeys(db *gorm.DB, model any) []string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		panic(fmt.Sprintf("admin: parse %T: %v", model, err))
	}
	var keys []string
	for _, rel := range stmt.Schema.Relationships.Relations {
		name, _, _ := strings.Cut(rel.Field.Tag.Get("json"), ",")
		if name == "" {
			name = rel.Field.Name
		}
		keys = append(keys, name)
	}
	return keys
}

type handler[T any] struct {
	Resource[T]
	site    *Site
	refused []string
}

func (h *handler[T]) name() string { return h.Name }

func (h *handler[T]) mount(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.detail)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	if h.Tag != nil {
		g.PUT("/:id/genres", h.tag)
	}
}

func (h *handler[T]) db(c *gin.Context) *gorm.DB {
	return h.site.db.WithContext(c.Request.Context())
}

func (h *handler[T]) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	if page > math.MaxInt32/size {
		page = math.MaxInt32 / size
	}

	db := h.db(c)
	var total int64
	if err := db.Model(new(T)).Count(&total).Error; err != nil {
		fail(c, err)
		return
	}
	items := make([]T, 0, size)
	if err := db.Order("id").Offset((page - 1) * size).Limit(size).Find(&items).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "page": page, "data": items})
}

func (h *handler[T]) load(c *gin.Context, db *gorm.DB, preload ...string) (*T, uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, fmt.Errorf("%w: invalid id %q", errBadRequest, c.Param("id")))
		return nil, 0, false
	}
	for _, p := range preload {
		db = db.Preload(p)
	}
	obj := new(T)
	if err := db.First(obj, id).Error; err != nil {
		fail(c, err)
		return nil, 0, false
	}
	return obj, uint(id), true
}

func (h *handler[T]) detail(c *gin.Context) {
	db := h.db(c)
	obj, _, ok := h.load(c, db, h.Preload...)
	if !ok {
		return
	}
	resp := gin.H{"data": obj}
	if h.Describe != nil {
		derived, err := h.Describe(db, obj)
		if err != nil {
			fail(c, err)
			return
		}
		resp["derived"] = derived
	}
	c.JSON(http.StatusOK, resp)
}

// bind decodes the request body onto obj, refusing server-owned fields
// and associations. required keys must be present.
func (h *handler[T]) bind(c *gin.Context, obj *T, required ...string) error {
	raw, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}
	for _, key := range h.refused {
		if gjson.GetBytes(raw, key).Exists() {
			return fmt.Errorf("%w: %s is read-only", errBadRequest, key)
		}
	}
	for _, key := range required {
		if !gjson.GetBytes(raw, key).Exists() {
			return fmt.Errorf("%w: %s is required", errBadRequest, key)
		}
	}
	if err := binding.JSON.BindBody(raw, obj); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *handler[T]) create(c *gin.Context) {
	obj := new(T)
	if err := h.bind(c, obj, h.Required...); err != nil {
		fail(c, err)
		return
	}
	res := h.db(c).Omit(clause.Associations).Create(obj)
	if err := res.Error; err != nil {
		fail(c, err)
		return
	}
	h.site.publish(Event{Action: Created, Model: h.Name, ID: createdID(res)})
	c.JSON(http.StatusCreated, gin.H{"data": obj})
}

func (h *handler[T]) update(c *gin.Context) {
	db := h.db(c)
	obj, id, ok := h.load(c, db)
	if !ok {
		return
	}
	if err := h.bind(c, obj); err != nil {
		fail(c, err)
		return
	}
	if err := db.Omit(clause.Associations).Save(obj).Error; err != nil {
		fail(c, err)
		return
	}
	h.site.publish(Event{Action: Updated, Model: h.Name, ID: id})
	c.JSON(http.StatusOK, gin.H{"data": obj})
}

func (h *handler[T]) delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, fmt.Errorf("%w: invalid id %q", errBadRequest, c.Param("id")))
		return
	}
	db := h.db(c)
	if h.Delete != nil {
		err = h.Delete(db, uint(id))
	} else {
		res := db.Delete(new(T), id)
		err = res.Error
		if err == nil && res.RowsAffected == 0 {
			err = gorm.ErrRecordNotFound
		}
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.site.publish(Event{Action: Deleted, Model: h.Name, ID: uint(id)})
	c.Status(http.StatusNoContent)
}

func (h *handler[T]) tag(c *gin.Context) {
	db := h.db(c)
	obj, id, ok := h.load(c, db)
	if !ok {
		return
	}
	var body struct {
		GenreIDs []uint `json:"genre_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.Tag(db, obj, body.GenreIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: unknown genre in %v", errBadRequest, body.GenreIDs)
		}
		fail(c, err)
		return
	}
	h.site.publish(Event{Action: Tagged, Model: h.Name, ID: id})
	c.Status(http.StatusNoContent)
}

// createdID reads the primary key GORM assigned during res.
func createdID(res *gorm.DB) uint {
	sch := res.Statement.Schema
	if sch == nil || sch.PrioritizedPrimaryField == nil {
		return 0
	}
	v, _ := sch.PrioritizedPrimaryField.ValueOf(res.Statement.Context, res.Statement.ReflectValue)
	id, _ := v.(uint)
	return id
}
