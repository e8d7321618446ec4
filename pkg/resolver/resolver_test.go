package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testMappings() MappingSet {
	return MappingSet{
		Accounts: map[string]string{
			"Assets:Bank:Checking":        "35",
			"Expenses:Travel":             "61",
			"Expenses:Meals and Dining":   "62",
			"Liabilities:Credit Card AMX": "80",
		},
		Locations: map[string]string{
			"GROUP": "1",
			"US":    "2",
			"SG":    "3",
		},
	}
}

func TestFindLayers(t *testing.T) {
	r := New(testMappings(), DefaultRules())

	cases := []struct {
		name string
		kind Kind
		in   string
		want string
	}{
		{"exact", Accounts, "Expenses:Travel", "61"},
		{"case insensitive", Accounts, "expenses:travel", "61"},
		{"substring", Accounts, "Credit Card AMX", "80"},
		{"leaf", Accounts, "Checking", "35"},
		{"similarity", Accounts, "Meals and Dinning", "62"},
		{"rule replacement", Locations, "GRP", "1"},
		{"whitespace", Locations, "  US ", "2"},
		{"no match", Accounts, "Petty Cash", ""},
		{"empty", Accounts, "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, r.Find(c.kind, c.in))
		})
	}
}

func TestFindBelowCutoff(t *testing.T) {
	r := New(MappingSet{Accounts: map[string]string{"Payroll Expenses": "9"}}, Rules{})
	// A substring hit resolves, a distant name does not.
	assert.Equal(t, "9", r.Find(Accounts, "Payroll"))
	assert.Equal(t, "", r.Find(Accounts, "Rent"))
}

func TestAllowAll(t *testing.T) {
	r := AllowAll()
	assert.Equal(t, "Anything Goes", r.Find(Accounts, "Anything Goes"))
	assert.Equal(t, "", r.Find(Accounts, "  "))
}

func TestFuzzyEqual(t *testing.T) {
	assert.True(t, FuzzyEqual("Checking", "Assets:Bank:Checking"))
	assert.True(t, FuzzyEqual("expenses:travel", "Expenses:Travel"))
	assert.True(t, FuzzyEqual("Meals and Dinning", "Meals and Dining"))
	assert.False(t, FuzzyEqual("Rent", "Expenses:Travel"))
	assert.True(t, FuzzyEqual("", ""))
	assert.False(t, FuzzyEqual("Rent", ""))
}

func TestLoadRulesMissingFile(t *testing.T) {
	r, err := LoadRules("testdata/nope.yaml")
	assert.NoError(t, err)
	assert.Equal(t, "GROUP", r.apply(Locations, "grp"))
}
