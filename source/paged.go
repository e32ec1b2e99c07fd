package source

import (
	"maps"

	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
)

// PagedView is one page of the records a Builder selects for some
// criteria. The first detailed access probes the total record count and
// clamps the page; enumeration then runs the page query through a nested
// QuerySource. Both queries run at most once per view.
//
// Rows are converted with the builder's BuildFromRow unless WithTransform
// overrides it.
type PagedView[T any] struct {
	window[T]

	builder  Builder[T]
	criteria Criteria
	orderBy  string
	desc     *Descriptor
}

// NewPagedView prepares page of the records matching criteria, perPage
// records per page. perPage 0 puts every record on one page.
func NewPagedView[T any](exec Executor, builder Builder[T], criteria Criteria, page, perPage int, orderBy string, opts ...Option) (*PagedView[T], error) {
	switch {
	case exec == nil:
		return nil, errors.New("an executor is required")
	case builder == nil:
		return nil, errors.New("a builder is required")
	case perPage < 0:
		return nil, errors.Errorf("invalid page size %d", perPage)
	}
	conf := newConfig("paged", opts)
	var transform cursor.Transform[cursor.Row, T] = builder.BuildFromRow
	if conf.transform != nil {
		t, ok := conf.transform.(cursor.Transform[cursor.Row, T])
		if !ok {
			return nil, errors.Errorf("transform %T does not produce the view's element type", conf.transform)
		}
		transform = t
	}
	v := &PagedView[T]{
		window: window[T]{
			owner:     "PagedView",
			exec:      exec,
			conf:      conf,
			opts:      opts,
			transform: transform,
			pager:     pagination{page: page, perPage: perPage},
		},
		builder:  builder,
		criteria: maps.Clone(criteria),
		orderBy:  orderBy,
	}
	v.probe = v.countQuery
	v.query = v.pageQuery
	return v, nil
}

// describe asks the builder for the descriptor once.
func (v *PagedView[T]) describe() (Descriptor, error) {
	if v.desc != nil {
		return *v.desc, nil
	}
	d, err := v.builder.BuildDescriptor(maps.Clone(v.criteria), v.pager.page, v.pager.perPage, v.orderBy)
	if err != nil {
		return Descriptor{}, errors.Wrap(err, "failed to build query descriptor")
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	v.desc = &d
	return d, nil
}

func (v *PagedView[T]) countQuery() (string, []any, error) {
	d, err := v.describe()
	if err != nil {
		return "", nil, err
	}
	return d.CountSQL()
}

func (v *PagedView[T]) pageQuery(limit, offset int) (string, []any, error) {
	d, err := v.describe()
	if err != nil {
		return "", nil, err
	}
	return d.SelectSQL(limit, offset)
}

// Criteria returns a copy of the criteria the view was built with.
func (v *PagedView[T]) Criteria() Criteria {
	return maps.Clone(v.criteria)
}

// Descriptor returns the descriptor the builder produced.
func (v *PagedView[T]) Descriptor() (Descriptor, error) {
	return v.describe()
}

// Property adds criteria and order_by to the page properties.
func (v *PagedView[T]) Property(name string) (any, error) {
	switch name {
	case "criteria":
		return v.Criteria(), nil
	case "order_by":
		return v.orderBy, nil
	}
	return v.window.Property(name)
}
