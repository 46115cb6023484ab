package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStart_StableWithinMonth(t *testing.T) {
	early := time.Date(2024, time.January, 1, 0, 0, 1, 0, time.UTC)
	late := time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, PeriodStart(early), PeriodStart(late))
}

func TestPeriodStart_RollsAtMonthBoundary(t *testing.T) {
	jan := time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	assert.NotEqual(t, PeriodStart(jan), PeriodStart(feb))
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), PeriodStart(feb))
}

func TestPeriodStart_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 08:30 on Feb 1 in UTC+9 is still Jan 31 in UTC.
	local := time.Date(2024, time.February, 1, 8, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), PeriodStart(local))
}

func TestKey_Strings(t *testing.T) {
	period := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	user := UserKey("user-42", "anthropic.claude-v2", period)
	assert.Equal(t, "USER#user-42#2024-03-01T00:00:00Z", user.PK())
	assert.Equal(t, "MODEL#anthropic.claude-v2", user.SK())

	global := GlobalKey("anthropic.claude-v2", period)
	assert.Equal(t, "GLOBAL#2024-03-01T00:00:00Z", global.PK())
	assert.Equal(t, "MODEL#anthropic.claude-v2", global.SK())
}

func TestKey_DifferentSubjectsDifferentBuckets(t *testing.T) {
	period := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	a := UserKey("alice", "m", period)
	b := UserKey("bob", "m", period)
	assert.NotEqual(t, a.PK(), b.PK())
}
