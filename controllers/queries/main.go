package queries

type TransactionQueries struct {
	Page  int    `query:"page" validate:"min:0"`
	Limit int    `query:"limit" validate:"max:1000"`
	Kind  string `query:"kind"`
}

type AuditQueries struct {
	ActorID  uint64 `query:"actor_id"`
	TargetID uint64 `query:"target_id"`
	TimeFrom int64  `query:"time_from"`
	TimeTo   int64  `query:"time_to"`
	Limit    int    `query:"limit" validate:"max:1000"`
}

type SignupParams struct {
	Email       string `json:"email" validate:"required|email"`
	ReferrerUID string `json:"referrer_uid"`
}

type PurchaseParams struct {
	Tier string `json:"tier" validate:"required"`
}

type WithdrawalParams struct {
	Amount string `json:"amount" validate:"required"`
}

type ResolveParams struct {
	Decision string `json:"decision" validate:"required|in:approve,reject"`
	Mode     string `json:"mode" validate:"in:auto,manual"`
	Note     string `json:"note"`
}

type CallbackParams struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

type ActivityParams struct {
	Active bool `json:"active"`
}
