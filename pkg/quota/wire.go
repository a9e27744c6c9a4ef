package quota

// Upstream GetUserStatus response schema. Every field is optional on the
// wire; decoding must degrade to "not present" rather than fabricate
// zeroes, so anything the server may omit is a pointer.

type userStatusResponse struct {
	UserStatus *userStatus `json:"userStatus"`
}

type userStatus struct {
	Name                   *string           `json:"name"`
	Email                  *string           `json:"email"`
	UserTier               *userTier         `json:"userTier"`
	PlanStatus             *planStatus       `json:"planStatus"`
	CascadeModelConfigData *cascadeModelData `json:"cascadeModelConfigData"`
}

type userTier struct {
	ID                      *string `json:"id"`
	Name                    *string `json:"name"`
	Description             *string `json:"description"`
	UpgradeSubscriptionURI  *string `json:"upgradeSubscriptionUri"`
	UpgradeSubscriptionText *string `json:"upgradeSubscriptionText"`
}

type planStatus struct {
	PlanInfo               planInfo `json:"planInfo"`
	AvailablePromptCredits int64    `json:"availablePromptCredits"`
	AvailableFlowCredits   *int64   `json:"availableFlowCredits"`
}

type planInfo struct {
	MonthlyPromptCredits int64   `json:"monthlyPromptCredits"`
	MonthlyFlowCredits   *int64  `json:"monthlyFlowCredits"`
	PlanName             *string `json:"planName"`
	TeamsTier            *string `json:"teamsTier"`
	BrowserEnabled       *bool   `json:"browserEnabled"`
	KnowledgeBaseEnabled *bool   `json:"knowledgeBaseEnabled"`
	CanBuyMoreCredits    *bool   `json:"canBuyMoreCredits"`
}

type cascadeModelData struct {
	ClientModelConfigs []rawModelConfig `json:"clientModelConfigs"`
}

type rawModelConfig struct {
	Label        string        `json:"label"`
	ModelOrAlias *modelOrAlias `json:"modelOrAlias"`
	QuotaInfo    *quotaInfo    `json:"quotaInfo"`
}

type modelOrAlias struct {
	Model string `json:"model"`
}

type quotaInfo struct {
	RemainingFraction *float64 `json:"remainingFraction"`
	ResetTime         string   `json:"resetTime"`
}
