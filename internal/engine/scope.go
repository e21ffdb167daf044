package engine

import (
	"strings"
	"time"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
)

type cacheKey struct {
	field string
	typ   ir.ValueType
}

// scope is the evaluation state for one record. It memoizes typed field
// values so a field read by many rules and leaves is parsed once per
// declared type. A scope is owned by one goroutine and discarded after the
// record is evaluated.
type scope struct {
	rec   ir.Record
	ctx   *ir.Context
	opts  normalize.Options
	cache map[cacheKey]normalize.Value
}

func newScope(rec ir.Record, ctx *ir.Context) *scope {
	return &scope{
		rec: rec,
		ctx: ctx,
		opts: normalize.Options{
			Layouts:   ctx.DateFormats,
			Sentinels: ctx.Sentinels,
		},
		cache: make(map[cacheKey]normalize.Value),
	}
}

// value returns the typed value of field under typ.
func (s *scope) value(field string, typ ir.ValueType) normalize.Value {
	if typ == "" {
		typ = ir.TypeAuto
	}
	k := cacheKey{field: field, typ: typ}
	if v, ok := s.cache[k]; ok {
		return v
	}
	raw, present := s.rec.Get(field)
	v := normalize.Resolve(raw, present, typ, s.opts)
	s.cache[k] = v
	return v
}

// present reports whether field holds a reported, non-sentinel value.
func (s *scope) present(field string) bool {
	raw, ok := s.rec.Get(field)
	return ok && !normalize.IsMissing(raw, s.ctx.Sentinels...)
}

// lowerText returns the lowercased raw text of field, or false when the
// field is absent or a sentinel.
func (s *scope) lowerText(field string) (string, bool) {
	v := s.value(field, ir.TypeText)
	if !v.Present() {
		return "", false
	}
	return strings.ToLower(v.Raw), true
}

// contextDate resolves a named context date.
func (s *scope) contextDate(name string) (time.Time, error) {
	d, ok := s.ctx.Date(name)
	if !ok {
		return time.Time{}, unknownReference("context date", name)
	}
	return d, nil
}

// keywords resolves an inline list or a named context list.
func (s *scope) keywords(k ir.Keywords) ([]string, error) {
	if len(k.Inline) > 0 {
		return k.Inline, nil
	}
	list, ok := s.ctx.KeywordList(k.From)
	if !ok {
		return nil, unknownReference("keyword list", k.From)
	}
	return list, nil
}
