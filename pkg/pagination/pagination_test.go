package pagination

import (
	"encoding/json"
	"testing"

	pkgerrors "github.com/angelmondragon/entityrepo/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Descending, ParseDirection("Descending"))
	assert.Equal(t, Ascending, ParseDirection("Ascending"))
	assert.Equal(t, Ascending, ParseDirection("descending"))
	assert.Equal(t, Ascending, ParseDirection("DESC"))
	assert.Equal(t, Ascending, ParseDirection(""))
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePageSize(0))
	assert.Equal(t, DefaultPageSize, NormalizePageSize(-3))
	assert.Equal(t, 25, NormalizePageSize(25))
	assert.Equal(t, MaxPageSize, NormalizePageSize(MaxPageSize+1))
}

func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings("Name")
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 10, s.PageSize)
	assert.Equal(t, 0, s.Skip)
	assert.Equal(t, Ascending, s.OrderDirection)
	assert.Equal(t, "Name", s.OrderColumn)
	require.NoError(t, s.Validate())
}

func TestNewPagedSettingsComputesSkip(t *testing.T) {
	s, err := NewPagedSettings("Name", 25, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Page)
	assert.Equal(t, 25, s.PageSize)
	assert.Equal(t, 50, s.Skip)
}

func TestNewPagedSettingsRejectsInvalidInput(t *testing.T) {
	_, err := NewPagedSettings("Name", 0, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPagination))

	_, err = NewPagedSettings("Name", 10, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPagination))
}

func TestWithPageRecomputesSkip(t *testing.T) {
	s := NewSettings("Name").WithPage(4, 5)
	assert.Equal(t, 15, s.Skip)
	assert.Equal(t, 5, s.PageSize)
	assert.Equal(t, 4, s.Page)
}

func TestValidateReportsFields(t *testing.T) {
	s := Settings{Page: 0, PageSize: 0, Skip: -1}
	err := s.Validate()
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidPagination, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "page")
	assert.Contains(t, details, "pageSize")
	assert.Contains(t, details, "skip")
}

func TestPagedResultDerivedValues(t *testing.T) {
	cases := []struct {
		name     string
		total    int64
		pageSize int
		pages    int
	}{
		{name: "exact", total: 20, pageSize: 10, pages: 2},
		{name: "remainder", total: 21, pageSize: 10, pages: 3},
		{name: "empty", total: 0, pageSize: 10, pages: 0},
		{name: "zero page size", total: 5, pageSize: 0, pages: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := PagedResult[int]{TotalRecords: tc.total, PageSize: tc.pageSize, Data: []int{1, 2}}
			assert.Equal(t, tc.pages, r.Pages())
			assert.Equal(t, 2, r.Records())
		})
	}
}

func TestPagedResultJSONIncludesDerivedFields(t *testing.T) {
	r := NewPagedResult(NewSettings("Name").WithPage(2, 2), 5, []string{"c", "d"})
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 2, decoded["page"])
	assert.EqualValues(t, 5, decoded["totalRecords"])
	assert.EqualValues(t, 2, decoded["records"])
	assert.EqualValues(t, 3, decoded["pages"])
	assert.Len(t, decoded["data"], 2)
}

func TestNewPagedResultNeverNilData(t *testing.T) {
	r := NewPagedResult[string](NewSettings("Name"), 0, nil)
	assert.NotNil(t, r.Data)
	assert.Equal(t, 0, r.Records())
}
