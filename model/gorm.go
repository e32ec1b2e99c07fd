package model

import (
	"context"
	"reflect"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/source"
)

// Option configures a gorm model builder.
type Option func(*config)

type config struct {
	ctx       context.Context
	log       zerolog.Logger
	cacheSize int
	cacheTTL  time.Duration
}

// WithContext sets the context used to decode rows and load records.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithCache sizes the record cache used by ByID. A size of 0 disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *config) {
		c.cacheSize, c.cacheTTL = size, ttl
	}
}

// Gorm builds descriptors and records for the gorm model M. Criteria keys
// are field or column names of M. Records loaded by ByID are cached by
// primary key until a row with the same key is decoded. Callers always get
// their own copy of a record.
type Gorm[M any] struct {
	db      *gorm.DB
	schema  *schema.Schema
	primary *schema.Field
	deleted *schema.Field
	cache   *expirable.LRU[cursor.Key, *M]
	conf    config
}

var _ source.Builder[*struct{}] = (*Gorm[struct{}])(nil)

func NewGorm[M any](db *gorm.DB, opts ...Option) (*Gorm[M], error) {
	conf := config{
		ctx:       context.Background(),
		log:       zerolog.Nop(),
		cacheSize: 1e3,
		cacheTTL:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(M)); err != nil {
		return nil, errors.Wrap(err, "failed to parse model schema")
	}
	g := &Gorm[M]{
		db:      db,
		schema:  stmt.Schema,
		primary: stmt.Schema.PrioritizedPrimaryField,
		conf:    conf,
	}
	g.conf.log = conf.log.With().Str("model", stmt.Schema.Name).Logger()
	if f := stmt.Schema.LookUpField("deleted_at"); f != nil && f.DBName != "" {
		g.deleted = f
	}
	if conf.cacheSize > 0 {
		g.cache = expirable.NewLRU[cursor.Key, *M](conf.cacheSize, nil, conf.cacheTTL)
	}
	return g, nil
}

// Table returns the table of M.
func (g *Gorm[M]) Table() string {
	return g.schema.Table
}

func (g *Gorm[M]) column(key string) (string, error) {
	f := g.schema.LookUpField(key)
	if f == nil || f.DBName == "" {
		return "", cursor.InvalidProperty(g.schema.Name, key)
	}
	return quote(g.schema.Table) + "." + quote(f.DBName), nil
}

func (g *Gorm[M]) key() string {
	if g.primary == nil {
		return ""
	}
	return quote(g.schema.Table) + "." + quote(g.primary.DBName)
}

// BuildDescriptor filters M's table by criteria. Soft deleted records are
// left out.
func (g *Gorm[M]) BuildDescriptor(criteria source.Criteria, page, perPage int, order string) (source.Descriptor, error) {
	clauses, params, err := where(criteria, g.column)
	if err != nil {
		return source.Descriptor{}, err
	}
	if g.deleted != nil {
		clauses = append(clauses, quote(g.schema.Table)+"."+quote(g.deleted.DBName)+" IS NULL")
	}
	ob, err := orderBy(g.schema.Table, order)
	if err != nil {
		return source.Descriptor{}, err
	}
	if ob == "" && g.primary != nil {
		ob = g.key()
	}
	return source.Descriptor{
		Table:       g.schema.Table,
		Where:       clauses,
		WhereParams: params,
		OrderBy:     ob,
		Key:         g.key(),
	}, nil
}

// BuildFromRow decodes row into a new M. Columns M does not map are
// ignored. The cached record with the row's key is evicted.
func (g *Gorm[M]) BuildFromRow(row cursor.Row) (*M, bool, error) {
	m := new(M)
	rv := reflect.ValueOf(m)
	for i, column := range row.Columns() {
		v := row.At(i)
		if v == nil {
			continue
		}
		f := g.schema.LookUpField(column)
		if f == nil || f.DBName == "" {
			continue
		}
		if err := f.Set(g.conf.ctx, rv, v); err != nil {
			return nil, false, errors.Wrapf(err, "failed to decode column %s", column)
		}
	}
	if g.cache != nil && g.primary != nil {
		if v, ok := row.Get(g.primary.DBName); ok && v != nil {
			g.cache.Remove(cursor.NormalizeKey(v))
		}
	}
	return m, true, nil
}

// ByID loads the record with primary key id. It reports false when there
// is none.
func (g *Gorm[M]) ByID(id cursor.Key) (*M, bool, error) {
	if g.primary == nil {
		return nil, false, errors.Errorf("model %s has no primary key", g.schema.Name)
	}
	id = cursor.NormalizeKey(id)
	if g.cache != nil {
		if m, ok := g.cache.Get(id); ok {
			c := *m
			return &c, true, nil
		}
	}
	m := new(M)
	err := g.db.WithContext(g.conf.ctx).First(m, g.key()+" = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g.conf.log.Debug().Interface("id", id).Msg("record not found")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to load record")
	}
	if g.cache != nil {
		c := *m
		g.cache.Add(id, &c)
	}
	return m, true, nil
}

// IDTransform loads records by id, skipping ids with no record. Use it to
// enumerate a list of ids as records.
func IDTransform[E any, M any](g *Gorm[M]) cursor.Transform[E, *M] {
	return func(id E) (*M, bool, error) {
		return g.ByID(id)
	}
}

// Purge empties the record cache.
func (g *Gorm[M]) Purge() {
	if g.cache != nil {
		g.cache.Purge()
	}
}
