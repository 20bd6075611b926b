package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

// FiltersFor extracts LOT_SIZE.stepSize and PRICE_FILTER.tickSize for symbol.
func FiltersFor(info *domain.ExchangeInfo, symbol string) (domain.Quantizer, error) {
	if info == nil {
		return domain.Quantizer{}, fmt.Errorf("%w: %s (empty exchange info)", domain.ErrSymbolNotFound, symbol)
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		var q domain.Quantizer
		for _, f := range s.Filters {
			switch f.FilterType {
			case domain.FilterLotSize:
				q.StepSize = f.StepSize
			case domain.FilterPriceFilter:
				q.TickSize = f.TickSize
			}
		}
		return q, nil
	}
	return domain.Quantizer{}, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, symbol)
}

// ListSymbols returns every symbol name in the exchange metadata.
func ListSymbols(info *domain.ExchangeInfo) []string {
	if info == nil {
		return nil
	}
	names := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		names = append(names, s.Symbol)
	}
	return names
}

// AvailableBalance returns the available balance of asset.
func AvailableBalance(account *domain.AccountInfo, asset string) (decimal.Decimal, error) {
	if account != nil {
		for _, a := range account.Assets {
			if a.Asset == asset {
				return a.AvailableBalance, nil
			}
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, asset)
}
