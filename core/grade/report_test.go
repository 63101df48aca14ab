package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/subject"
)

func score(f float64) *float64 { return &f }

func TestBuildCard(t *testing.T) {
	secondaire, _ := core.ScaleFor(core.LevelSecondaire)
	subjects := map[string]subject.Subject{
		"math": {ID: "math", Code: "MATH", Name: "Mathématiques", Coefficient: 4},
		"fran": {ID: "fran", Code: "FRAN", Name: "Français", Coefficient: 2},
	}
	grades := []Grade{
		{SubjectID: "math", Score: score(12), MaxScore: 20},
		{SubjectID: "math", Score: score(16), MaxScore: 20},
		{SubjectID: "fran", Score: score(8), MaxScore: 20},
		{SubjectID: "fran", Score: score(5), MaxScore: 10}, // recorded on another scale
	}

	card := buildCard(grades, subjects, secondaire)
	require.Len(t, card.Subjects, 2)
	assert.Equal(t, "FRAN", card.Subjects[0].Code)
	assert.Equal(t, 9.0, *card.Subjects[0].Average)
	assert.Equal(t, 2, card.Subjects[0].GradeCount)
	assert.Equal(t, 14.0, *card.Subjects[1].Average)

	require.NotNil(t, card.Average)
	assert.Equal(t, 12.33, *card.Average)
	assert.Equal(t, "Assez bien", card.Mention)
	assert.True(t, *card.Passed)

	// below the pass mark
	card = buildCard([]Grade{{SubjectID: "math", Score: score(9.5), MaxScore: 20}}, subjects, secondaire)
	assert.False(t, *card.Passed)
	assert.Equal(t, "Insuffisant", card.Mention)

	// no scores
	card = buildCard(nil, subjects, secondaire)
	assert.Nil(t, card.Average)
	assert.Empty(t, card.Subjects)
}

func TestBuildCard_maternelle(t *testing.T) {
	maternelle, _ := core.ScaleFor(core.LevelMaternelle)
	subjects := map[string]subject.Subject{
		"graph": {ID: "graph", Code: "GRAPH", Coefficient: 1},
		"lang":  {ID: "lang", Code: "LANG", Coefficient: 1},
	}
	grades := []Grade{
		{SubjectID: "graph", Appreciation: core.AppreciationAcquired},
		{SubjectID: "graph", Appreciation: core.AppreciationAcquired},
		{SubjectID: "graph", Appreciation: core.AppreciationNotYet},
		// tie goes to the lower appreciation
		{SubjectID: "lang", Appreciation: core.AppreciationAcquired},
		{SubjectID: "lang", Appreciation: core.AppreciationInProgress},
	}

	card := buildCard(grades, subjects, maternelle)
	require.Len(t, card.Subjects, 2)
	assert.Equal(t, core.AppreciationAcquired, card.Subjects[0].Appreciation)
	assert.Equal(t, core.AppreciationInProgress, card.Subjects[1].Appreciation)
	assert.Nil(t, card.Average)
	assert.Nil(t, card.Passed)
	assert.Empty(t, card.Mention)
}

func TestRankCards(t *testing.T) {
	cards := []ReportCard{
		{StudentName: "Bola", Average: score(12)},
		{StudentName: "Amani", Average: score(15)},
		{StudentName: "Zola"},
		{StudentName: "Chanel", Average: score(12)},
		{StudentName: "Dany", Average: score(9)},
	}
	rankCards(cards)

	var names []string
	var ranks []int
	for _, c := range cards {
		names = append(names, c.StudentName)
		ranks = append(ranks, c.Rank)
	}
	assert.Equal(t, []string{"Amani", "Bola", "Chanel", "Dany", "Zola"}, names)
	assert.Equal(t, []int{1, 2, 2, 4, 0}, ranks)
	assert.Equal(t, 4, cards[0].ClassSize)
	assert.Zero(t, cards[4].ClassSize)
}

func TestCheckMark(t *testing.T) {
	maternelle, _ := core.ScaleFor(core.LevelMaternelle)
	primaire, _ := core.ScaleFor(core.LevelPrimaire)

	tests := []struct {
		name      string
		grade     Grade
		scale     core.GradingScale
		wantField string
		wantMax   float64
	}{
		{name: "appreciation", grade: Grade{Appreciation: core.AppreciationAcquired, MaxScore: 10}, scale: maternelle},
		{name: "score in maternelle", grade: Grade{Score: score(5)}, scale: maternelle, wantField: "score"},
		{name: "missing appreciation", scale: maternelle, wantField: "appreciation"},
		{name: "score", grade: Grade{Score: score(7.5)}, scale: primaire, wantMax: 10},
		{name: "score off scale", grade: Grade{Score: score(12)}, scale: primaire, wantField: "score"},
		{name: "appreciation in primaire", grade: Grade{Appreciation: core.AppreciationAcquired}, scale: primaire, wantField: "appreciation"},
		{name: "missing score", scale: primaire, wantField: "score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.grade
			err := checkMark(&g, tt.scale)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMax, g.MaxScore)
				return
			}
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}
}
