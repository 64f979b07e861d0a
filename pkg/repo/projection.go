package repo

import (
	"database/sql"
	"reflect"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Projection selects a subset of the entity's columns into rows of U.
type Projection[U any] struct {
	columns []string
}

// Project builds a projection onto U. Without columns, U must be a struct
// and its persisted fields pick the columns. A non-struct U takes exactly
// one column. Columns are Go field names or column names of the entity.
func Project[U any](columns ...string) Projection[U] {
	return Projection[U]{columns: append([]string(nil), columns...)}
}

func (p Projection[U]) Columns() []string {
	return append([]string(nil), p.columns...)
}

func (p Projection[U]) resolve(src *source) ([]clause.Column, error) {
	structShape := isStructShape[U]()
	if !structShape && len(p.columns) != 1 {
		return nil, invalidProjection("projection to a scalar type needs exactly one column", p.columns)
	}

	names := p.columns
	if len(names) == 0 {
		target, err := schema.Parse(new(U), src.projections, src.namer)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid projection")
		}
		names = target.DBNames
		if len(names) == 0 {
			return nil, invalidProjection("projection type has no persisted fields", nil)
		}
	}

	columns := make([]clause.Column, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, ".") {
			return nil, invalidProjection("projection columns must belong to the queried entity", []string{name})
		}
		field := lookupColumn(src.schema, name)
		if field == nil {
			return nil, invalidProjection("unknown projection column", []string{name})
		}
		columns = append(columns, clause.Column{Table: clause.CurrentTable, Name: field.DBName})
	}
	return columns, nil
}

func lookupColumn(s *schema.Schema, name string) *schema.Field {
	field := s.LookUpField(name)
	if field == nil {
		for _, candidate := range s.Fields {
			if strings.EqualFold(candidate.Name, name) || strings.EqualFold(candidate.DBName, name) {
				field = candidate
				break
			}
		}
	}
	if field == nil || field.DBName == "" {
		return nil
	}
	return field
}

// allColumns selects every persisted column of the entity, qualified.
func allColumns(s *schema.Schema) []clause.Column {
	columns := make([]clause.Column, len(s.DBNames))
	for i, name := range s.DBNames {
		columns[i] = clause.Column{Table: clause.CurrentTable, Name: name}
	}
	return columns
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

func isStructShape[U any]() bool {
	t := reflect.TypeOf((*U)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return false
	}
	if t.ConvertibleTo(timeType) || reflect.PointerTo(t).Implements(scannerType) {
		return false
	}
	return true
}

func invalidProjection(reason string, columns []string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, reason).WithDetails(map[string]any{
		"columns": columns,
	})
}
