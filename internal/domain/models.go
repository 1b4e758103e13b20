package domain

import "time"

// Transaction types stored in the ledger.
const (
	TxTypeIncome  = "income"
	TxTypeExpense = "expense"
)

// Default free-text sentinels. The app targets Indonesian small businesses,
// so the display labels follow the original deployment.
const (
	TxStatusCompleted      = "Selesai"
	DefaultSalesCategory   = "Penjualan"
	ProductStatusAvailable = "Tersedia"
)

// DisplayDateLayout is the id-ID convention used for the human-readable
// transaction date string. Month grouping never parses this string; it is
// derived from the canonical OccurredAt timestamp.
const DisplayDateLayout = "02/01/2006 15.04.05"

type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
	Status   string `json:"status"`
}

type ProductCreateRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	Stock    int    `json:"stock"`
	Status   string `json:"status"`
}

type ProductUpdateRequest struct {
	ID       int64   `json:"id"`
	Name     *string `json:"name,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	Category *string `json:"category,omitempty"`
	Stock    *int    `json:"stock,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

// CartItem is a request-scoped cart line. Carts are never persisted; the
// checkout operation consumes them directly.
type CartItem struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

type Transaction struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Category   string    `json:"category"`
	Amount     int64     `json:"amount"`
	Date       string    `json:"date"`
	OccurredAt time.Time `json:"occurredAt"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
}

// TransactionCreateRequest is the checkout payload. Amount is the
// caller-computed total; the server does not reprice the cart. Items are
// consulted only when Type is income.
type TransactionCreateRequest struct {
	Type     string     `json:"type"`
	Category string     `json:"category"`
	Amount   int64      `json:"amount"`
	Date     string     `json:"date"`
	Status   string     `json:"status"`
	Note     string     `json:"note"`
	Items    []CartItem `json:"items"`
}

type Settings struct {
	ID        int64  `json:"id"`
	StoreName string `json:"storeName"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Currency  string `json:"currency"`
	LogoURL   string `json:"logoUrl,omitempty"`
}

// DefaultSettings is returned by reads before the singleton row has been
// written. The row itself is created lazily on first upsert.
func DefaultSettings() Settings {
	return Settings{
		ID:        1,
		StoreName: "KasUMKM",
		Address:   "Jl. Digital No. 123, Indonesia",
		Phone:     "0812-3456-7890",
		Currency:  "IDR",
	}
}

type Stats struct {
	Balance          int64 `json:"balance"`
	Income           int64 `json:"income"`
	Expense          int64 `json:"expense"`
	TransactionCount int64 `json:"transactionCount"`
}

type MonthlyReportRow struct {
	Month   string `json:"month"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

type CategoryReportRow struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type Report struct {
	ChartData    []MonthlyReportRow  `json:"chartData"`
	CategoryData []CategoryReportRow `json:"categoryData"`
}

type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
