package execution

import (
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

// ExpectedSlippage estimates slippage from order size relative to market
// volume: the average spread plus a participation penalty
func ExpectedSlippage(orderSize, marketVolume, avgSpread float64) float64 {
	if marketVolume <= 0 {
		return avgSpread
	}
	participation := orderSize / marketVolume
	return avgSpread + participation*0.002
}

// CostEstimate summarizes expected transaction costs for an order
type CostEstimate struct {
	ExpectedCost float64
	CostPercent  float64
	CurrentPrice float64
}

// EstimateTransactionCost estimates the cost of executing an order at the
// latest close. Market orders pay the full spread; limit orders are assumed
// to earn half of it back.
func EstimateTransactionCost(o order.Order, window []types.OHLCV, bidAskSpread float64) CostEstimate {
	if len(window) == 0 {
		return CostEstimate{}
	}

	currentPrice := window[len(window)-1].Close

	costPerUnit := bidAskSpread * currentPrice
	if o.Type != order.TypeMarket {
		costPerUnit *= 0.5
	}

	expectedCost := costPerUnit * o.Quantity
	notional := currentPrice * o.Quantity

	estimate := CostEstimate{
		ExpectedCost: expectedCost,
		CurrentPrice: currentPrice,
	}
	if notional > 0 {
		estimate.CostPercent = expectedCost / notional * 100
	}
	return estimate
}
