package ordering

import (
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/angelmondragon/entityrepo/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Ordering is a resolved sort path: the LEFT JOIN chain needed to reach the
// column, the qualified column itself and the root primary-key tiebreaker.
// Relations[i] is the dotted relation path Joins[i] reaches.
type Ordering struct {
	Path      string
	Direction pagination.Direction
	Joins     []clause.Join
	Relations []string
	Column    clause.Column
	Tiebreak  *clause.Column
}

// Apply adds the join chain and ORDER BY to tx. Without gorm Joins on tx
// the chain goes in as a FROM clause, replacing one set through Clauses.
// Otherwise relations tx already joins are reused and the rest of the chain
// is added through Joins as well, since gorm renders its joins after the
// FROM clause ones and a child join must follow its parent.
func (o *Ordering) Apply(tx *gorm.DB) *gorm.DB {
	if o == nil {
		return tx
	}
	if len(o.Joins) > 0 {
		joined := joinedAliases(tx)
		if len(joined) == 0 {
			tx = tx.Clauses(clause.From{Joins: o.Joins})
		} else {
			for i, j := range o.Joins {
				if !joined[j.Table.Alias] {
					tx = tx.Joins(o.Relations[i])
				}
			}
		}
	}
	desc := o.Direction.IsDescending()
	tx = tx.Order(clause.OrderByColumn{Column: o.Column, Desc: desc})
	if o.Tiebreak != nil {
		tx = tx.Order(clause.OrderByColumn{Column: *o.Tiebreak, Desc: desc})
	}
	return tx
}

// joinedAliases lists the table aliases gorm gives the relations joined on
// tx: "A.B" is joined as A and A__B, the scheme resolve uses too.
func joinedAliases(tx *gorm.DB) map[string]bool {
	if tx.Statement == nil || len(tx.Statement.Joins) == 0 {
		return nil
	}
	joined := make(map[string]bool)
	for _, j := range tx.Statement.Joins {
		alias := ""
		for i, part := range strings.Split(j.Name, ".") {
			if i > 0 {
				alias += aliasSep
			}
			alias += part
			joined[alias] = true
		}
	}
	return joined
}

const aliasSep = "__"

// cacheKey holds the parsed schema itself: gorm parses a model once per
// connection, and the schema carries that connection's table names.
type cacheKey struct {
	schema *schema.Schema
	path   string
	dir    pagination.Direction
}

// Resolver turns dotted property paths into orderings. Results are cached
// per schema, path and direction; a Resolver is safe for concurrent use.
type Resolver struct {
	cache sync.Map
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve walks path over root's relationships. Every segment but the last
// must name a belongs-to or has-one relation; the last must name a
// persisted field, by Go name or column name.
func (r *Resolver) Resolve(root *schema.Schema, path string, dir pagination.Direction) (*Ordering, error) {
	if root == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSortPath, "model schema is required")
	}
	if dir != pagination.Descending {
		dir = pagination.Ascending
	}
	key := cacheKey{schema: root, path: path, dir: dir}
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*Ordering), nil
	}

	ordering, err := resolve(root, path, dir)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(key, ordering)
	return actual.(*Ordering), nil
}

func resolve(root *schema.Schema, path string, dir pagination.Direction) (*Ordering, error) {
	if strings.TrimSpace(path) == "" {
		return nil, invalidPath(path, "", "sort path is empty")
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, invalidPath(path, seg, "sort path has an empty segment")
		}
	}

	var (
		current     = root
		parentAlias = clause.CurrentTable
		aliasParts  []string
		joins       []clause.Join
		relations   []string
	)
	for _, seg := range segments[:len(segments)-1] {
		rel := lookupRelation(current, seg)
		if rel == nil {
			if lookupField(current, seg) != nil {
				return nil, invalidPath(path, seg, "member is not a relation")
			}
			return nil, invalidPath(path, seg, "unknown member")
		}
		if rel.Type != schema.BelongsTo && rel.Type != schema.HasOne {
			return nil, invalidPath(path, seg, "cannot order through a collection")
		}

		aliasParts = append(aliasParts, rel.Name)
		alias := strings.Join(aliasParts, aliasSep)
		joins = append(joins, joinFor(rel, parentAlias, alias))
		relations = append(relations, strings.Join(aliasParts, "."))

		current = rel.FieldSchema
		parentAlias = alias
	}

	last := segments[len(segments)-1]
	field := lookupField(current, last)
	if field == nil {
		if lookupRelation(current, last) != nil {
			return nil, invalidPath(path, last, "member is a relation, not a column")
		}
		return nil, invalidPath(path, last, "unknown member")
	}
	if field.DBName == "" {
		return nil, invalidPath(path, last, "member is not a persisted column")
	}

	ordering := &Ordering{
		Path:      path,
		Direction: dir,
		Joins:     joins,
		Relations: relations,
		Column:    clause.Column{Table: parentAlias, Name: field.DBName},
	}
	if pk := root.PrioritizedPrimaryField; pk != nil && pk.DBName != "" {
		if len(joins) > 0 || pk.DBName != field.DBName {
			ordering.Tiebreak = &clause.Column{Table: clause.CurrentTable, Name: pk.DBName}
		}
	}
	return ordering, nil
}

// joinFor mirrors gorm's own join conditions for single-valued relations.
func joinFor(rel *schema.Relationship, parentAlias, alias string) clause.Join {
	exprs := make([]clause.Expression, len(rel.References))
	for idx, ref := range rel.References {
		switch {
		case ref.OwnPrimaryKey:
			exprs[idx] = clause.Eq{
				Column: clause.Column{Table: parentAlias, Name: ref.PrimaryKey.DBName},
				Value:  clause.Column{Table: alias, Name: ref.ForeignKey.DBName},
			}
		case ref.PrimaryValue == "":
			exprs[idx] = clause.Eq{
				Column: clause.Column{Table: parentAlias, Name: ref.ForeignKey.DBName},
				Value:  clause.Column{Table: alias, Name: ref.PrimaryKey.DBName},
			}
		default:
			exprs[idx] = clause.Eq{
				Column: clause.Column{Table: alias, Name: ref.ForeignKey.DBName},
				Value:  ref.PrimaryValue,
			}
		}
	}
	return clause.Join{
		Type:  clause.LeftJoin,
		Table: clause.Table{Name: rel.FieldSchema.Table, Alias: alias},
		ON:    clause.Where{Exprs: exprs},
	}
}

func lookupRelation(s *schema.Schema, name string) *schema.Relationship {
	if rel, ok := s.Relationships.Relations[name]; ok {
		return rel
	}
	for relName, rel := range s.Relationships.Relations {
		if strings.EqualFold(relName, name) {
			return rel
		}
	}
	return nil
}

func lookupField(s *schema.Schema, name string) *schema.Field {
	if field := s.LookUpField(name); field != nil {
		return field
	}
	for _, field := range s.Fields {
		if strings.EqualFold(field.Name, name) {
			return field
		}
	}
	return nil
}

func invalidPath(path, segment, reason string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidSortPath, reason).WithDetails(map[string]any{
		"path":    path,
		"segment": segment,
	})
}
