package helpers

import (
	"strings"
)

var (
	stableBases = map[string]struct{}{
		"USDT": {}, "USDC": {}, "BUSD": {}, "DAI": {}, "TUSD": {}, "FDUSD": {},
	}
	fiatBases = map[string]struct{}{
		"TRY": {}, "EUR": {}, "GBP": {}, "BRL": {}, "UAH": {},
	}
	leveragedSuffixes = []string{"UP", "DOWN", "BULL", "BEAR"}
	// Underlyings of the exchange's leveraged token listings.
	leveragedUnderlyings = map[string]struct{}{
		"BTC": {}, "ETH": {}, "BNB": {}, "XRP": {}, "ADA": {}, "LINK": {},
		"DOT": {}, "TRX": {}, "EOS": {}, "XTZ": {}, "LTC": {}, "SUSHI": {},
		"UNI": {}, "AAVE": {}, "BCH": {}, "FIL": {}, "YFI": {}, "SXP": {},
		"1INCH": {}, "XLM": {},
	}

	coinNames = map[string]string{
		"BTC":   "Bitcoin",
		"ETH":   "Ethereum",
		"BNB":   "Binance Coin",
		"ADA":   "Cardano",
		"SOL":   "Solana",
		"DOT":   "Polkadot",
		"AVAX":  "Avalanche",
		"MATIC": "Polygon",
		"LINK":  "Chainlink",
		"UNI":   "Uniswap",
		"LTC":   "Litecoin",
		"XRP":   "Ripple",
		"DOGE":  "Dogecoin",
		"SHIB":  "Shiba Inu",
	}
)

// -----------------------------------------------------------------------------

// NormalizeSymbol upper-cases and trims a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// -----------------------------------------------------------------------------

// BaseAsset strips the quote asset suffix from symbol.
func BaseAsset(symbol, quote string) string {
	return strings.TrimSuffix(NormalizeSymbol(symbol), quote)
}

// -----------------------------------------------------------------------------

// ValidateSymbol returns the normalized symbol, or an InvalidSymbolError when
// it is not a plain spot pair against quote.
func ValidateSymbol(symbol, quote string) (string, error) {
	s := NormalizeSymbol(symbol)
	if s == "" {
		return "", &InvalidSymbolError{Symbol: symbol, Reason: "empty symbol"}
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", &InvalidSymbolError{Symbol: symbol, Reason: "unexpected characters"}
		}
	}
	if !strings.HasSuffix(s, quote) || len(s) <= len(quote) {
		return "", &InvalidSymbolError{Symbol: symbol, Reason: "must be a " + quote + " pair"}
	}

	base := strings.TrimSuffix(s, quote)
	if _, ok := stableBases[base]; ok {
		return "", &InvalidSymbolError{Symbol: symbol, Reason: "stablecoin pair"}
	}
	if _, ok := fiatBases[base]; ok {
		return "", &InvalidSymbolError{Symbol: symbol, Reason: "fiat pair"}
	}
	if isLeveragedBase(base) {
		return "", &InvalidSymbolError{Symbol: symbol, Reason: "leveraged token"}
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// isLeveragedBase matches tokens such as BTCUP or ETHBEAR: a known
// underlying followed by a leverage suffix. SYRUP or SETUP are kept.
func isLeveragedBase(base string) bool {
	for _, suffix := range leveragedSuffixes {
		underlying, ok := strings.CutSuffix(base, suffix)
		if !ok {
			continue
		}
		if _, ok := leveragedUnderlyings[underlying]; ok {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// SymbolName returns a display name, falling back to the base asset.
func SymbolName(symbol, quote string) string {
	base := BaseAsset(symbol, quote)
	if name, ok := coinNames[base]; ok {
		return name
	}
	return base
}
