package routing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTableLookup(t *testing.T) {
	table := routing.Default()

	tests := []struct {
		category, sub, detail string
		want                  string
	}{
		{"Incidents (Technology)", "Hardware", "", "Technology"},
		{"Incidents (Technology)", "Security", "Phishing", "Risk & Security"},
		{"Incidents (Technology)", "Security", "Malware", "Risk & Security"},
		{"Incidents (Technology)", "Security", "Weak password", "Technology"},
		{"Incidents (Technology)", "Security", "", "Technology"},
		{"incidents (technology)", " security ", "PHISHING", "Risk & Security"},
		{"Banking Operations", "Card Services", "Fraud Report", "Risk & Security"},
		{"Banking Operations", "Card Services", "Replacement", "Operations"},
		{"Banking Operations", "Loans", "", "Finance"},
		{"Claims", "Regulatory Complaint", "", "Legal & Compliance"},
		{"Digital Services", "Online Banking", "Outage", "Technology"},
		{"Human Resources", "Equipment Request", "Laptop", "Technology"},
	}
	for _, tc := range tests {
		got, ok := table.Lookup(tc.category, tc.sub, tc.detail)
		require.True(t, ok, "%s/%s/%s", tc.category, tc.sub, tc.detail)
		assert.Equal(t, tc.want, got, "%s/%s/%s", tc.category, tc.sub, tc.detail)
	}

	_, ok := table.Lookup("Incidents (Technology)", "Printers", "")
	assert.False(t, ok)
	_, ok = table.Lookup("Unknown", "Hardware", "")
	assert.False(t, ok)
}

func TestParseRejectsAmbiguousEntries(t *testing.T) {
	_, err := routing.Parse([]byte(`
routes:
  - category: A
    subcategories:
      - name: B
        area: X
        default: Y
`))
	assert.Error(t, err)

	_, err = routing.Parse([]byte(`
routes:
  - category: A
    subcategories:
      - name: B
`))
	assert.Error(t, err)

	_, err = routing.Parse([]byte(`
routes:
  - category: A
    subcategories:
      - name: B
        area: X
  - category: a
    subcategories: []
`))
	assert.Error(t, err)

	table, err := routing.Parse([]byte(`
routes:
  - category: A
    subcategories:
      - name: B
        default: X
        conditions:
          C: Y
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, table.AreaNames())
}

func TestDefaultCatalogCoversAreas(t *testing.T) {
	table := routing.Default()
	assert.Contains(t, table.AreaNames(), "Risk & Security")
	assert.Contains(t, table.AreaNames(), "Technology")
	require.NotEmpty(t, table.Catalog())
	assert.Equal(t, "Incidents (Technology)", table.Catalog()[0].Name)
}

func TestResolverRoutesPhishingToRiskArea(t *testing.T) {
	f := testutil.NewFixture(t)
	resolver := routing.NewResolver(routing.ResolverDependencies{
		Table:      f.Table,
		Categories: f.Categories,
		Areas:      f.Areas,
	})
	category := f.Category(t, "Incidents (Technology)")

	area, err := resolver.Resolve(context.Background(), category.ID, domain.Subcategory{
		Name:   "Security",
		Detail: &domain.SubcategoryDetail{Name: "Phishing"},
	})
	require.NoError(t, err)
	assert.Equal(t, f.Area(t, "Risk & Security").ID, area.ID)

	area, err = resolver.Resolve(context.Background(), category.ID, domain.Subcategory{Name: "Hardware"})
	require.NoError(t, err)
	assert.Equal(t, "Technology", area.Name)
}

func TestResolverFailures(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	t.Run("missing category", func(t *testing.T) {
		resolver := routing.NewResolver(routing.ResolverDependencies{Table: f.Table, Categories: f.Categories, Areas: f.Areas})
		_, err := resolver.Resolve(ctx, "00000000-0000-0000-0000-000000000000", domain.Subcategory{Name: "Hardware"})
		assert.ErrorIs(t, err, errorutil.ErrNotFound)
	})

	t.Run("unmapped subcategory", func(t *testing.T) {
		resolver := routing.NewResolver(routing.ResolverDependencies{Table: f.Table, Categories: f.Categories, Areas: f.Areas})
		category := f.Category(t, "Claims")
		_, err := resolver.Resolve(ctx, category.ID, domain.Subcategory{Name: "Printers"})
		assert.ErrorIs(t, err, errorutil.ErrUnroutable)
	})

	t.Run("area record missing", func(t *testing.T) {
		resolver := routing.NewResolver(routing.ResolverDependencies{
			Table:      f.Table,
			Categories: f.Categories,
			Areas:      testutil.NewAreaRepo(),
		})
		category := f.Category(t, "Claims")
		_, err := resolver.Resolve(ctx, category.ID, domain.Subcategory{Name: "Billing Dispute"})
		assert.ErrorIs(t, err, errorutil.ErrNotFound)
	})
}
