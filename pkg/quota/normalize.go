package quota

import (
	"fmt"
	"time"
)

// normalizeSnapshot flattens the deeply-optional upstream schema into a
// stable Snapshot. now is injected so the reset-time rendering is
// deterministic under test.
func normalizeSnapshot(response *userStatusResponse, now time.Time) *Snapshot {
	snapshot := &Snapshot{
		Timestamp: now.UTC().Format(time.RFC3339),
		Models:    []ModelQuota{},
	}
	if response == nil || response.UserStatus == nil {
		return snapshot
	}
	status := response.UserStatus

	if plan := status.PlanStatus; plan != nil {
		snapshot.PromptCredits = newCreditBlock(plan.PlanInfo.MonthlyPromptCredits, plan.AvailablePromptCredits)
		if plan.PlanInfo.MonthlyFlowCredits != nil && plan.AvailableFlowCredits != nil {
			snapshot.FlowCredits = newCreditBlock(*plan.PlanInfo.MonthlyFlowCredits, *plan.AvailableFlowCredits)
		}
	}

	snapshot.TokenUsage = aggregateUsage(snapshot.PromptCredits, snapshot.FlowCredits)
	snapshot.UserInfo = normalizeUserInfo(status)

	if data := status.CascadeModelConfigData; data != nil {
		for _, config := range data.ClientModelConfigs {
			if config.QuotaInfo == nil {
				// No quota information means the entry is not
				// quota-tracked, not that it is exhausted.
				continue
			}
			snapshot.Models = append(snapshot.Models, normalizeModelQuota(config, now))
		}
	}

	return snapshot
}

// newCreditBlock builds a credit block, or nil when the monthly
// allotment is not strictly positive. Constructing a block with
// monthly=0 would both divide by zero and misreport "no such pool" as
// "empty pool".
func newCreditBlock(monthly, available int64) *CreditBlock {
	if monthly <= 0 {
		return nil
	}
	return &CreditBlock{
		Available:           available,
		Monthly:             monthly,
		UsedPercentage:      float64(monthly-available) / float64(monthly) * 100.0,
		RemainingPercentage: float64(available) / float64(monthly) * 100.0,
	}
}

// aggregateUsage sums the credit pools. Built only when at least one
// pool exists.
func aggregateUsage(prompt, flow *CreditBlock) *TokenUsage {
	if prompt == nil && flow == nil {
		return nil
	}

	var totalAvailable, totalMonthly int64
	if prompt != nil {
		totalAvailable += prompt.Available
		totalMonthly += prompt.Monthly
	}
	if flow != nil {
		totalAvailable += flow.Available
		totalMonthly += flow.Monthly
	}

	overall := 0.0
	if totalMonthly > 0 {
		overall = float64(totalAvailable) / float64(totalMonthly) * 100.0
	}

	return &TokenUsage{
		PromptCredits:              prompt,
		FlowCredits:                flow,
		TotalAvailable:             totalAvailable,
		TotalMonthly:               totalMonthly,
		OverallRemainingPercentage: overall,
	}
}

func normalizeUserInfo(status *userStatus) *UserInfo {
	if status.Name == nil && status.UserTier == nil {
		return nil
	}

	info := &UserInfo{
		Name:  status.Name,
		Email: status.Email,
	}

	if tier := status.UserTier; tier != nil {
		info.Tier = tier.Name
		info.TierID = tier.ID
		info.TierDescription = tier.Description
		info.UpgradeURI = tier.UpgradeSubscriptionURI
		info.UpgradeText = tier.UpgradeSubscriptionText
	}
	if plan := status.PlanStatus; plan != nil {
		// Displayed tier prefers the explicit tier name; teams
		// accounts only carry a teamsTier in plan data.
		if info.Tier == nil {
			info.Tier = plan.PlanInfo.TeamsTier
		}
		info.PlanName = plan.PlanInfo.PlanName
		info.TeamsTier = plan.PlanInfo.TeamsTier
		info.BrowserEnabled = plan.PlanInfo.BrowserEnabled
		info.KnowledgeBaseEnabled = plan.PlanInfo.KnowledgeBaseEnabled
		info.CanBuyMoreCredits = plan.PlanInfo.CanBuyMoreCredits
		monthly := plan.PlanInfo.MonthlyPromptCredits
		available := plan.AvailablePromptCredits
		info.MonthlyPromptCredits = &monthly
		info.AvailablePromptCredits = &available
	}

	return info
}

func normalizeModelQuota(config rawModelConfig, now time.Time) ModelQuota {
	remainingFraction := 0.0
	if config.QuotaInfo.RemainingFraction != nil {
		remainingFraction = *config.QuotaInfo.RemainingFraction
	}

	modelID := "unknown"
	if config.ModelOrAlias != nil {
		modelID = config.ModelOrAlias.Model
	}

	return ModelQuota{
		Label:               config.Label,
		ModelID:             modelID,
		RemainingPercentage: remainingFraction * 100.0,
		// Strict equality: a near-zero fraction still has quota left.
		IsExhausted:    remainingFraction == 0.0,
		ResetTime:      config.QuotaInfo.ResetTime,
		TimeUntilReset: timeUntilReset(config.QuotaInfo.ResetTime, now),
	}
}

// timeUntilReset renders the distance to a reset timestamp:
// "Unknown" when unparseable, "Ready" when past, "45m" under an hour,
// "2h 30m" otherwise.
func timeUntilReset(resetTime string, now time.Time) string {
	reset, err := time.Parse(time.RFC3339, resetTime)
	if err != nil {
		return "Unknown"
	}

	diff := reset.Sub(now)
	if diff <= 0 {
		return "Ready"
	}

	minutes := int64(diff.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
