package credits

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/entitlements"
)

// Product is a license tier that can be bought with credits.
type Product struct {
	ID    string
	Plan  entitlements.Plan
	Price decimal.Decimal
	Term  time.Duration
}

const (
	monthlyTerm = 30 * 24 * time.Hour
	annualTerm  = 365 * 24 * time.Hour
)

var products = map[string]Product{
	"starter_monthly":   {ID: "starter_monthly", Plan: entitlements.PlanStarter, Price: decimal.NewFromInt(29), Term: monthlyTerm},
	"starter_annual":    {ID: "starter_annual", Plan: entitlements.PlanStarter, Price: decimal.NewFromInt(249), Term: annualTerm},
	"pro_monthly":       {ID: "pro_monthly", Plan: entitlements.PlanPro, Price: decimal.NewFromInt(99), Term: monthlyTerm},
	"pro_annual":        {ID: "pro_annual", Plan: entitlements.PlanPro, Price: decimal.NewFromInt(799), Term: annualTerm},
	"franchise_monthly": {ID: "franchise_monthly", Plan: entitlements.PlanFranchise, Price: decimal.NewFromInt(299), Term: monthlyTerm},
	"franchise_annual":  {ID: "franchise_annual", Plan: entitlements.PlanFranchise, Price: decimal.NewFromInt(2399), Term: annualTerm},
}

func LookupProduct(id string) (Product, bool) {
	p, ok := products[id]
	return p, ok
}

// ProductIDs lists the redeemable product ids in stable order.
func ProductIDs() []string {
	ids := make([]string, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
