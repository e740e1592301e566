package cmd

import (
	"reflect"
	"testing"

	"github.com/jj1bdx/erldoc/internal/inventory"
)

func TestFilterAndCount(t *testing.T) {
	t.Parallel()

	entries := []inventory.Entry{
		{Name: "lists", Domain: "erl", Type: "module"},
		{Name: "lists:map/2", Domain: "erl", Type: "function"},
		{Name: "lists:map(Fun, List)", Domain: "erl", Type: "function"},
		{Name: "lists:t/0", Domain: "erl", Type: "type"},
		{Name: "index", Domain: "std", Type: "doc"},
	}

	if got := filterEntries(entries, "Function"); len(got) != 2 {
		t.Errorf("filter function = %+v", got)
	}

	got := countByType(filterEntries(entries, ""))
	want := []typeCount{{"function", 2}, {"module", 1}, {"type", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("counts = %+v, want %+v", got, want)
	}
}
