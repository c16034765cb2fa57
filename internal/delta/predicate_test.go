package delta

import (
	"testing"

	"lakehouse-gateway/internal/model"
)

func TestEvaluateFilter(t *testing.T) {
	row := model.Row{
		"Category": "Accessories",
		"Price":    9.50,
		"Stock":    int64(12),
		"Note":     nil,
	}

	tests := []struct {
		name   string
		filter *model.Filter
		want   bool
	}{
		{"nil filter matches", nil, true},
		{
			"string equality",
			&model.Filter{Predicates: []model.Predicate{{Column: "Category", Operator: "EQ", Value: "Accessories"}}},
			true,
		},
		{
			"numeric comparison across int and float",
			&model.Filter{Predicates: []model.Predicate{{Column: "Stock", Operator: "GTE", Value: 12.0}}},
			true,
		},
		{
			"and requires all",
			&model.Filter{Predicates: []model.Predicate{
				{Column: "Category", Operator: "EQ", Value: "Accessories"},
				{Column: "Price", Operator: "GT", Value: 10.0},
			}},
			false,
		},
		{
			"or requires one",
			&model.Filter{LogicalOperator: "OR", Predicates: []model.Predicate{
				{Column: "Category", Operator: "EQ", Value: "Gadgets"},
				{Column: "Price", Operator: "LT", Value: 10.0},
			}},
			true,
		},
		{
			"in membership",
			&model.Filter{Predicates: []model.Predicate{
				{Column: "Category", Operator: "IN", Values: []interface{}{"Gadgets", "Accessories"}},
			}},
			true,
		},
		{
			"is_null on nil value",
			&model.Filter{Predicates: []model.Predicate{{Column: "Note", Operator: "IS_NULL"}}},
			true,
		},
		{
			"comparison against null value never matches",
			&model.Filter{Predicates: []model.Predicate{{Column: "Note", Operator: "EQ", Value: "x"}}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateFilter(tt.filter, row)
			if err != nil {
				t.Fatalf("EvaluateFilter failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateFilterUnknownOperator(t *testing.T) {
	filter := &model.Filter{Predicates: []model.Predicate{{Column: "Price", Operator: "LIKE", Value: "x"}}}
	if _, err := EvaluateFilter(filter, model.Row{"Price": 1.0}); err == nil {
		t.Error("Expected an error for an unsupported operator")
	}
}

func TestApplyAssignments(t *testing.T) {
	schema := &model.TableSchema{Columns: []model.ColumnSchema{
		{Name: "Price", Type: model.ColumnTypeFloat},
		{Name: "Stock", Type: model.ColumnTypeInteger},
		{Name: "Category", Type: model.ColumnTypeString},
	}}
	row := model.Row{"Price": 20.0, "Stock": int64(5), "Category": "Gadgets"}

	updated, err := ApplyAssignments(schema, row, []model.Assignment{
		{Column: "Price", Op: "multiply", Value: 0.9},
		{Column: "Stock", Op: "add", Value: 3},
		{Column: "Category", Op: "set", Value: "Sale"},
	})
	if err != nil {
		t.Fatalf("ApplyAssignments failed: %v", err)
	}
	if updated["Price"].(float64) != 18.0 {
		t.Errorf("Expected Price 18.0, got %v", updated["Price"])
	}
	if updated["Stock"].(int64) != 8 {
		t.Errorf("Expected Stock 8, got %v", updated["Stock"])
	}
	if updated["Category"] != "Sale" {
		t.Errorf("Expected Category Sale, got %v", updated["Category"])
	}
	if row["Price"].(float64) != 20.0 {
		t.Error("ApplyAssignments mutated the input row")
	}
}

func TestApplyAssignmentsUnknownColumn(t *testing.T) {
	schema := &model.TableSchema{Columns: []model.ColumnSchema{{Name: "Price", Type: model.ColumnTypeFloat}}}
	_, err := ApplyAssignments(schema, model.Row{"Price": 1.0}, []model.Assignment{
		{Column: "Missing", Op: "set", Value: 1},
	})
	if err == nil {
		t.Error("Expected an error for an unknown assignment column")
	}
}
