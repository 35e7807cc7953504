package discovery

// Exchange program layout. This is the fixed, versioned account schema the
// on-chain perpetuals program uses; the pipeline treats it as supplied data
// and does not validate it.
const (
	// PerpProgramID is the perpetuals program.
	PerpProgramID = "PERPHjGBqRHArX4DySjwM6UJHiR3sWAatqfdBS2qQJu"
	// LiquidityPool is the single pool all custodies belong to.
	LiquidityPool = "5BUwFW4nRbftYTDMbgxykoFWqWHPzahFSNAaaaJtVKsq"
)

// Custody identifies one custody account and the token it holds.
type Custody struct {
	Symbol  string
	Address string
}

// Tradable market custodies. Longs collateralize in the market token itself.
var marketCustodies = []Custody{
	{Symbol: "SOL", Address: "7xS2gz2bTp3fwCC7knJvUWTEU9Tycczu6VhJYKgi1wdz"},
	{Symbol: "ETH", Address: "AQCGyheWPLeo6Qp9WpYS9m3Qj479t7R636N9ey1rEjEn"},
	{Symbol: "BTC", Address: "5Pv3gM9JrFFH883SWAhvJC9RPYmo8UNxuFtv5bMMALkm"},
}

// Stablecoin custodies used as short collateral.
var stableCustodies = []Custody{
	{Symbol: "USDC", Address: "G18jKKXQwBbrHeiK3C9MRXhkHsLHf7XgCSisykV46EZa"},
	{Symbol: "USDT", Address: "4vkNeXiYEUizLdrpdPS1eC2mccyM4NUPRtERrk6ZETkk"},
}

// PDA seed prefixes and side tags used by the program.
const (
	seedPosition = "position"
	seedRequest  = "position_request"

	sideTagLong  = byte(1)
	sideTagShort = byte(2)
)
