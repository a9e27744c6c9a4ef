package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func strPtr(v string) *string       { return &v }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewCreditBlock(t *testing.T) {
	block := newCreditBlock(1000, 750)
	require.NotNil(t, block)
	assert.Equal(t, int64(750), block.Available)
	assert.Equal(t, int64(1000), block.Monthly)
	assert.InDelta(t, 25.0, block.UsedPercentage, 1e-9)
	assert.InDelta(t, 75.0, block.RemainingPercentage, 1e-9)

	assert.Nil(t, newCreditBlock(0, 500), "monthly=0 means the pool does not apply")
	assert.Nil(t, newCreditBlock(-1, 500))
}

func TestAggregateUsage(t *testing.T) {
	assert.Nil(t, aggregateUsage(nil, nil), "no pools, no aggregate")

	prompt := newCreditBlock(1000, 750)
	flow := newCreditBlock(500, 100)
	usage := aggregateUsage(prompt, flow)
	require.NotNil(t, usage)
	assert.Equal(t, int64(850), usage.TotalAvailable)
	assert.Equal(t, int64(1500), usage.TotalMonthly)
	assert.InDelta(t, 850.0/1500.0*100.0, usage.OverallRemainingPercentage, 1e-9)

	promptOnly := aggregateUsage(prompt, nil)
	require.NotNil(t, promptOnly)
	assert.Equal(t, int64(750), promptOnly.TotalAvailable)
	assert.Equal(t, int64(1000), promptOnly.TotalMonthly)
	assert.Nil(t, promptOnly.FlowCredits)
}

func TestTimeUntilReset(t *testing.T) {
	tests := []struct {
		name      string
		resetTime string
		want      string
	}{
		{
			name:      "45_minutes_ahead",
			resetTime: testNow.Add(45*time.Minute + 30*time.Second).Format(time.RFC3339),
			want:      "45m",
		},
		{
			name:      "150_minutes_ahead",
			resetTime: testNow.Add(150 * time.Minute).Format(time.RFC3339),
			want:      "2h 30m",
		},
		{
			name:      "in_the_past",
			resetTime: testNow.Add(-time.Minute).Format(time.RFC3339),
			want:      "Ready",
		},
		{
			name:      "exactly_now",
			resetTime: testNow.Format(time.RFC3339),
			want:      "Ready",
		},
		{
			name:      "unparseable",
			resetTime: "sometime soon",
			want:      "Unknown",
		},
		{
			name:      "empty",
			resetTime: "",
			want:      "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timeUntilReset(tt.resetTime, testNow))
		})
	}
}

func TestNormalizeModelQuotaExhaustion(t *testing.T) {
	config := rawModelConfig{
		Label:        "Fast Model",
		ModelOrAlias: &modelOrAlias{Model: "model-fast-1"},
		QuotaInfo:    &quotaInfo{RemainingFraction: float64Ptr(0.0), ResetTime: testNow.Add(time.Hour).Format(time.RFC3339)},
	}
	model := normalizeModelQuota(config, testNow)
	assert.True(t, model.IsExhausted)
	assert.Equal(t, "model-fast-1", model.ModelID)

	// Strict equality: a near-zero fraction still has quota.
	config.QuotaInfo.RemainingFraction = float64Ptr(0.001)
	model = normalizeModelQuota(config, testNow)
	assert.False(t, model.IsExhausted)
	assert.InDelta(t, 0.1, model.RemainingPercentage, 1e-9)

	config.ModelOrAlias = nil
	model = normalizeModelQuota(config, testNow)
	assert.Equal(t, "unknown", model.ModelID)
}

func TestNormalizeSnapshot(t *testing.T) {
	response := &userStatusResponse{
		UserStatus: &userStatus{
			Name:  strPtr("Dev User"),
			Email: strPtr("dev@example.com"),
			UserTier: &userTier{
				ID:   strPtr("pro"),
				Name: strPtr("Pro"),
			},
			PlanStatus: &planStatus{
				PlanInfo: planInfo{
					MonthlyPromptCredits: 1000,
					MonthlyFlowCredits:   int64Ptr(500),
					PlanName:             strPtr("Pro Monthly"),
				},
				AvailablePromptCredits: 750,
				AvailableFlowCredits:   int64Ptr(100),
			},
			CascadeModelConfigData: &cascadeModelData{
				ClientModelConfigs: []rawModelConfig{
					{
						Label:        "Fast",
						ModelOrAlias: &modelOrAlias{Model: "fast-1"},
						QuotaInfo:    &quotaInfo{RemainingFraction: float64Ptr(0.5), ResetTime: testNow.Add(2 * time.Hour).Format(time.RFC3339)},
					},
					{
						Label: "Untracked",
						// No quota info: dropped, not zeroed.
					},
				},
			},
		},
	}

	snapshot := normalizeSnapshot(response, testNow)
	require.NotNil(t, snapshot.PromptCredits)
	require.NotNil(t, snapshot.FlowCredits)
	require.NotNil(t, snapshot.TokenUsage)
	require.NotNil(t, snapshot.UserInfo)

	assert.Equal(t, testNow.Format(time.RFC3339), snapshot.Timestamp)
	assert.InDelta(t, 25.0, snapshot.PromptCredits.UsedPercentage, 1e-9)
	assert.Equal(t, int64(850), snapshot.TokenUsage.TotalAvailable)
	assert.Equal(t, "Pro", *snapshot.UserInfo.Tier)
	assert.Equal(t, "Pro Monthly", *snapshot.UserInfo.PlanName)

	require.Len(t, snapshot.Models, 1, "entry without quota info is dropped")
	assert.Equal(t, "Fast", snapshot.Models[0].Label)
	assert.InDelta(t, 50.0, snapshot.Models[0].RemainingPercentage, 1e-9)
	assert.Equal(t, "2h 0m", snapshot.Models[0].TimeUntilReset)
}

func TestNormalizeSnapshotDeepAbsence(t *testing.T) {
	// Everything optional missing: a bare snapshot, not a crash and
	// not zero-valued fakes.
	snapshot := normalizeSnapshot(&userStatusResponse{}, testNow)
	assert.Nil(t, snapshot.PromptCredits)
	assert.Nil(t, snapshot.FlowCredits)
	assert.Nil(t, snapshot.TokenUsage)
	assert.Nil(t, snapshot.UserInfo)
	assert.Empty(t, snapshot.Models)

	snapshot = normalizeSnapshot(nil, testNow)
	assert.NotNil(t, snapshot)
}

func TestNormalizeUserInfoTierFallback(t *testing.T) {
	// No explicit tier name: the teams tier from plan data is shown.
	status := &userStatus{
		Name:     strPtr("Team User"),
		UserTier: &userTier{ID: strPtr("teams")},
		PlanStatus: &planStatus{
			PlanInfo: planInfo{
				MonthlyPromptCredits: 100,
				TeamsTier:            strPtr("Teams Ultimate"),
			},
			AvailablePromptCredits: 50,
		},
	}
	info := normalizeUserInfo(status)
	require.NotNil(t, info)
	require.NotNil(t, info.Tier)
	assert.Equal(t, "Teams Ultimate", *info.Tier)

	// Explicit tier name wins over teams tier.
	status.UserTier.Name = strPtr("Pro")
	info = normalizeUserInfo(status)
	assert.Equal(t, "Pro", *info.Tier)
}

func TestNormalizeFlowCreditsRequireBothFields(t *testing.T) {
	response := &userStatusResponse{
		UserStatus: &userStatus{
			PlanStatus: &planStatus{
				PlanInfo: planInfo{
					MonthlyPromptCredits: 1000,
					MonthlyFlowCredits:   int64Ptr(500),
					// Available flow credits missing.
				},
				AvailablePromptCredits: 750,
			},
		},
	}
	snapshot := normalizeSnapshot(response, testNow)
	assert.Nil(t, snapshot.FlowCredits)
	require.NotNil(t, snapshot.TokenUsage)
	assert.Equal(t, int64(1000), snapshot.TokenUsage.TotalMonthly)
}
