package quota

// Normalized snapshot shapes. Every field that the upstream schema may
// omit stays a pointer here: absence means "not applicable", never zero.

// Snapshot is a point-in-time view of the account's quota state.
// Immutable once constructed; the fetcher never caches one internally.
type Snapshot struct {
	Timestamp     string       `json:"timestamp"` // ISO 8601
	PromptCredits *CreditBlock `json:"prompt_credits,omitempty"`
	FlowCredits   *CreditBlock `json:"flow_credits,omitempty"`
	TokenUsage    *TokenUsage  `json:"token_usage,omitempty"`
	UserInfo      *UserInfo    `json:"user_info,omitempty"`
	Models        []ModelQuota `json:"models"`
}

// CreditBlock describes one credit pool. A block is only constructed
// when the monthly allotment is strictly positive; a missing block means
// the pool does not apply to this plan, not that it is empty.
type CreditBlock struct {
	Available           int64   `json:"available"`
	Monthly             int64   `json:"monthly"`
	UsedPercentage      float64 `json:"used_percentage"`
	RemainingPercentage float64 `json:"remaining_percentage"`
}

// TokenUsage aggregates the prompt and flow pools.
type TokenUsage struct {
	PromptCredits              *CreditBlock `json:"prompt_credits,omitempty"`
	FlowCredits                *CreditBlock `json:"flow_credits,omitempty"`
	TotalAvailable             int64        `json:"total_available"`
	TotalMonthly               int64        `json:"total_monthly"`
	OverallRemainingPercentage float64      `json:"overall_remaining_percentage"`
}

// UserInfo carries account identity and plan details.
type UserInfo struct {
	Name                   *string `json:"name,omitempty"`
	Email                  *string `json:"email,omitempty"`
	Tier                   *string `json:"tier,omitempty"`
	TierID                 *string `json:"tier_id,omitempty"`
	TierDescription        *string `json:"tier_description,omitempty"`
	PlanName               *string `json:"plan_name,omitempty"`
	TeamsTier              *string `json:"teams_tier,omitempty"`
	UpgradeURI             *string `json:"upgrade_uri,omitempty"`
	UpgradeText            *string `json:"upgrade_text,omitempty"`
	BrowserEnabled         *bool   `json:"browser_enabled,omitempty"`
	KnowledgeBaseEnabled   *bool   `json:"knowledge_base_enabled,omitempty"`
	CanBuyMoreCredits      *bool   `json:"can_buy_more_credits,omitempty"`
	MonthlyPromptCredits   *int64  `json:"monthly_prompt_credits,omitempty"`
	AvailablePromptCredits *int64  `json:"available_prompt_credits,omitempty"`
}

// ModelQuota is the per-model quota state. Entries without quota
// information upstream are dropped, not reported as zero.
type ModelQuota struct {
	Label               string  `json:"label"`
	ModelID             string  `json:"model_id"`
	RemainingPercentage float64 `json:"remaining_percentage"`
	IsExhausted         bool    `json:"is_exhausted"`
	ResetTime           string  `json:"reset_time"`
	TimeUntilReset      string  `json:"time_until_reset"`
}
