package game

type SettleInput struct {
	BuyerID        int64
	ListingID      int64
	Kind           ListingKind
	Bot            bool
	IdempotencyKey string
}

type SettleResult struct {
	SellerID     int64  `json:"seller_id"`
	Price        int64  `json:"price"`
	Description  string `json:"description"`
	BuyerBalance int64  `json:"buyer_balance"`
}

type CreateMarketListingInput struct {
	SellerID       int64
	Name           string
	Price          int64
	Description    string
	ImageURL       string
	IdempotencyKey string
}

type CreateEstateListingInput struct {
	SellerID       int64
	Title          string
	Price          int64
	Address        string
	Rooms          int32
	Area           float64
	Description    string
	ImageURL       string
	IdempotencyKey string
}

type CreateDepositInput struct {
	UserID         int64
	Name           string
	Amount         int64
	Rate           float64
	TermMonths     int32
	IdempotencyKey string
}
