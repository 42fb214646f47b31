package portfolio

import (
	"strings"
	"testing"

	"stockfolio/models"
)

func countInsights(insights []models.Insight, title string) int {
	n := 0
	for _, in := range insights {
		if in.Title == title {
			n++
		}
	}
	return n
}

func TestGenerateInsights_Scenario(t *testing.T) {
	positions, quotes := scenario()
	enriched, summary := Enrich(positions, quotes)

	insights := GenerateInsights(enriched, summary)

	if len(insights) != 3 {
		t.Fatalf("len(insights) = %d, want 3: %+v", len(insights), insights)
	}
	if countInsights(insights, "Low diversification") != 1 {
		t.Error("expected one diversification warning")
	}
	if countInsights(insights, "Strong performance") != 1 {
		t.Error("expected one performance success")
	}
	if countInsights(insights, "High concentration") != 1 {
		t.Fatal("expected exactly one concentration warning")
	}
	for _, in := range insights {
		if in.Title == "High concentration" {
			if in.Type != models.InsightWarning {
				t.Errorf("concentration type = %q", in.Type)
			}
			if !strings.Contains(in.Message, "AMZN") {
				t.Errorf("concentration should name the largest holding, got %q", in.Message)
			}
		}
		if in.Title == "Strong performance" && in.Type != models.InsightSuccess {
			t.Errorf("performance type = %q", in.Type)
		}
	}
}

func TestGenerateInsights_Empty(t *testing.T) {
	insights := GenerateInsights(nil, models.PortfolioSummary{})
	if insights == nil || len(insights) != 0 {
		t.Errorf("GenerateInsights() = %v, want empty non-nil slice", insights)
	}
}

func TestGenerateInsights_Rules(t *testing.T) {
	tests := []struct {
		name      string
		positions []models.Position
		quotes    map[string]*models.Quote
		want      []string
	}{
		{
			name: "diversified and balanced",
			positions: []models.Position{
				position("A", "1", "100"), position("B", "1", "100"), position("C", "1", "100"),
				position("D", "1", "100"), position("E", "1", "100"),
			},
			quotes: map[string]*models.Quote{},
			want:   []string{"Good diversification"},
		},
		{
			name: "heavy losses",
			positions: []models.Position{
				position("A", "1", "100"), position("B", "1", "100"), position("C", "1", "100"),
				position("D", "1", "100"), position("E", "1", "100"),
			},
			quotes: map[string]*models.Quote{
				"A": quote("A", "80", "-1", -1), "B": quote("B", "80", "-1", -1), "C": quote("C", "80", "-1", -1),
				"D": quote("D", "80", "-1", -1), "E": quote("E", "80", "-1", -1),
			},
			want: []string{"Good diversification", "Significant losses"},
		},
		{
			name:      "single holding",
			positions: []models.Position{position("ONE", "1", "100")},
			quotes:    map[string]*models.Quote{"ONE": quote("ONE", "105", "1", 1)},
			want:      []string{"Low diversification", "High concentration"},
		},
		{
			name: "exactly thirty percent is not concentrated",
			positions: []models.Position{
				position("A", "3", "10"), position("B", "3", "10"), position("C", "2", "10"),
				position("D", "1", "10"), position("E", "1", "10"),
			},
			quotes: map[string]*models.Quote{},
			want:   []string{"Good diversification"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enriched, summary := Enrich(tt.positions, tt.quotes)
			insights := GenerateInsights(enriched, summary)

			if len(insights) != len(tt.want) {
				t.Fatalf("got %d insights %+v, want %v", len(insights), insights, tt.want)
			}
			for i, title := range tt.want {
				if insights[i].Title != title {
					t.Errorf("insights[%d].Title = %q, want %q", i, insights[i].Title, title)
				}
			}
		})
	}
}
