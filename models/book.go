package models

// BookLevel is one price level: price, size and order count as strings.
type BookLevel [3]string

// BookSide holds the changed levels of an incremental update.
type BookSide struct {
	Asks []BookLevel `json:"asks"`
	Bids []BookLevel `json:"bids"`
}

// BookData is the single entry carried in result.data of a book push.
// Snapshots fill Asks and Bids; updates fill Update and PU.
type BookData struct {
	Asks   []BookLevel `json:"asks,omitempty"`
	Bids   []BookLevel `json:"bids,omitempty"`
	Update *BookSide   `json:"update,omitempty"`
	T      int64       `json:"t"`
	TT     int64       `json:"tt"`
	U      int64       `json:"u"`
	PU     *int64      `json:"pu,omitempty"`
	CS     int64       `json:"cs"`
}

// BookResult is the result envelope of a book channel push.
type BookResult struct {
	InstrumentName string     `json:"instrument_name"`
	Subscription   string     `json:"subscription"`
	Channel        string     `json:"channel"`
	Depth          int        `json:"depth"`
	Data           []BookData `json:"data"`
}

// BookPush is a full book frame as sent by the market endpoint.
type BookPush struct {
	ID     int64      `json:"id"`
	Method string     `json:"method"`
	Code   int        `json:"code"`
	Result BookResult `json:"result"`
}

// IsEmptyUpdate reports whether d is an update with no changed levels.
func (d BookData) IsEmptyUpdate() bool {
	return d.Update != nil && len(d.Update.Asks) == 0 && len(d.Update.Bids) == 0
}

// Candle is one row of a candlestick response.
type Candle struct {
	Open   string `json:"o"`
	High   string `json:"h"`
	Low    string `json:"l"`
	Close  string `json:"c"`
	Volume string `json:"v"`
	T      int64  `json:"t"`
}

// CandlestickResult is the result envelope of public/get-candlestick.
type CandlestickResult struct {
	Interval       string   `json:"interval"`
	InstrumentName string   `json:"instrument_name"`
	Data           []Candle `json:"data"`
}

// Response is the generic REST and websocket reply envelope.
type Response struct {
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}
