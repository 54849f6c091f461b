package billing

import "time"

// Plan is a purchasable subscription.
type Plan struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Period   string  `json:"period"`
}

// ProPlan unlocks the premium tier.
var ProPlan = Plan{
	ID:       "pro-monthly",
	Name:     "Syntra PRO",
	Price:    299,
	Currency: "TRY",
	Period:   "month",
}

// Transaction records one simulated payment.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
