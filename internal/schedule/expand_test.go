package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

var start = time.Date(2024, 5, 1, 18, 0, 0, 0, clock.JST)

func courseItems() []model.CourseItem {
	return []model.CourseItem{
		{ID: 1, ItemName: "Antipasto", Kind: model.KindStandard, OffsetMinutes: 0, DisplayOrder: 1, MakingPlace: model.PlaceKitchen},
		{ID: 2, ItemName: "Salad", Kind: model.KindStandard, OffsetMinutes: 10, DisplayOrder: 2, MakingPlace: model.PlaceKitchen},
		{ID: 3, ItemName: "Main", Kind: model.KindMain, OffsetMinutes: 20, DisplayOrder: 3, MakingPlace: model.PlaceBoth},
		{ID: 4, ItemName: "Dolce", Kind: model.KindStandard, OffsetMinutes: 30, DisplayOrder: 4, MakingPlace: model.PlaceKitchen},
	}
}

func TestExpandCountsAndTimes(t *testing.T) {
	recs := Expand(courseItems(), start, model.MainCounts{"Pasta": 1, "Pizza": 1})
	require.Len(t, recs, 5)

	for _, r := range recs {
		assert.GreaterOrEqual(t, r.Quantity, 1)
		assert.False(t, r.IsCooked)
		assert.False(t, r.IsServed)
	}
	assert.Equal(t, start, recs[0].ScheduledTime)
	assert.Equal(t, start.Add(10*time.Minute), recs[1].ScheduledTime)

	assert.Equal(t, uint64(3), recs[2].CourseItemID)
	assert.Equal(t, "Pasta", recs[2].MainDetail)
	assert.Equal(t, "Pizza", recs[3].MainDetail)
	assert.Equal(t, start.Add(20*time.Minute), recs[3].ScheduledTime)
	assert.Equal(t, start.Add(30*time.Minute), recs[4].ScheduledTime)
}

func TestExpandRowCountMatchesFormula(t *testing.T) {
	items := courseItems()
	for _, counts := range []model.MainCounts{
		{"Pasta": 3, "Pizza": 0},
		{"Pasta": 0, "Pizza": 0},
		{"Pasta": 2, "Pizza": 5},
	} {
		positive := 0
		for _, n := range counts {
			if n > 0 {
				positive++
			}
		}
		assert.Len(t, Expand(items, start, counts), 3+positive)
	}
}

func TestExpandQuantityCarriesCount(t *testing.T) {
	recs := Expand(courseItems(), start, model.MainCounts{"Pizza": 4})
	var mains []model.ProgressRecord
	for _, r := range recs {
		if r.MainDetail != "" {
			mains = append(mains, r)
		}
	}
	require.Len(t, mains, 1)
	assert.Equal(t, 4, mains[0].Quantity)
}

func TestExpandWithoutMainIgnoresCounts(t *testing.T) {
	items := []model.CourseItem{{ID: 9, Kind: model.KindStandard, OffsetMinutes: 5}}
	recs := Expand(items, start, model.MainCounts{"Pasta": 2})
	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].MainDetail)
	assert.Equal(t, 1, recs[0].Quantity)
}

func TestExpandEmptyCourse(t *testing.T) {
	assert.Empty(t, Expand(nil, start, model.MainCounts{"Pasta": 1}))
}

func TestExpandMainOnly(t *testing.T) {
	recs := ExpandMain(courseItems(), start, model.MainCounts{"Pasta": 2, "Pizza": 1})
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, uint64(3), r.CourseItemID)
	}
}
