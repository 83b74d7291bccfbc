package models

import "time"

// PriceRow is one row of the mandi price table as published.
type PriceRow struct {
	State      string
	District   string
	Market     string
	Commodity  string
	Variety    string
	MinPrice   *float64
	MaxPrice   *float64
	ModalPrice *float64
	PriceDate  string
}

// PriceCandidate is a normalized modal price ready for insertion.
type PriceCandidate struct {
	Crop       string
	State      string
	Market     string
	ModalPrice float64
	TS         time.Time
}

// Key identifies the series a candidate belongs to.
func (c PriceCandidate) Key() string {
	return SeriesKey(c.Crop, c.State, c.Market)
}

// SeriesKey joins the identifying columns of a price series.
func SeriesKey(crop, state, market string) string {
	return crop + "|" + state + "|" + market
}

// LastPrice is the most recent stored price of a series.
type LastPrice struct {
	ModalPrice float64
	TS         time.Time
}
