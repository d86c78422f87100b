package ota

import "encoding/xml"

const (
	RootInvCountNotif   = "OTA_HotelInvCountNotifRQ"
	RootRateAmountNotif = "OTA_HotelRateAmountNotifRQ"
)

type RequestorID struct {
	ID   string `xml:"ID,attr"`
	Type string `xml:"Type,attr"`
}

type Source struct {
	RequestorID *RequestorID `xml:"RequestorID"`
}

type POS struct {
	Source []Source `xml:"Source"`
}

// Header carries the root attributes and POS block shared by every notification.
type Header struct {
	EchoToken string `xml:"EchoToken,attr"`
	TimeStamp string `xml:"TimeStamp,attr"`
	Target    string `xml:"Target,attr"`
	Version   string `xml:"Version,attr"`
	POS       *POS   `xml:"POS"`
}

type StatusApplicationControl struct {
	Start        string `xml:"Start,attr"`
	End          string `xml:"End,attr"`
	InvTypeCode  string `xml:"InvTypeCode,attr"`
	RatePlanCode string `xml:"RatePlanCode,attr,omitempty"`
	Mon          string `xml:"Mon,attr,omitempty"`
	Tue          string `xml:"Tue,attr,omitempty"`
	Weds         string `xml:"Weds,attr,omitempty"`
	Thur         string `xml:"Thur,attr,omitempty"`
	Fri          string `xml:"Fri,attr,omitempty"`
	Sat          string `xml:"Sat,attr,omitempty"`
	Sun          string `xml:"Sun,attr,omitempty"`
}

type InvCount struct {
	Count     string `xml:"Count,attr"`
	CountType string `xml:"CountType,attr,omitempty"`
}

type InvCounts struct {
	InvCount []InvCount `xml:"InvCount"`
}

type Inventory struct {
	StatusApplicationControl *StatusApplicationControl `xml:"StatusApplicationControl"`
	InvCounts                *InvCounts                `xml:"InvCounts"`
}

type Inventories struct {
	HotelCode string      `xml:"HotelCode,attr"`
	HotelName string      `xml:"HotelName,attr,omitempty"`
	Inventory []Inventory `xml:"Inventory"`
}

type InvCountNotifRQ struct {
	XMLName xml.Name `xml:"OTA_HotelInvCountNotifRQ"`
	Header
	Inventories *Inventories `xml:"Inventories"`
}

type BaseByGuestAmt struct {
	NumberOfGuests  string `xml:"NumberOfGuests,attr"`
	AmountBeforeTax string `xml:"AmountBeforeTax,attr"`
	CurrencyCode    string `xml:"CurrencyCode,attr,omitempty"`
}

type BaseByGuestAmts struct {
	BaseByGuestAmt []BaseByGuestAmt `xml:"BaseByGuestAmt"`
}

type AdditionalGuestAmount struct {
	AgeQualifyingCode string `xml:"AgeQualifyingCode,attr"`
	Amount            string `xml:"Amount,attr"`
}

type AdditionalGuestAmounts struct {
	AdditionalGuestAmount []AdditionalGuestAmount `xml:"AdditionalGuestAmount"`
}

type Rate struct {
	CurrencyCode           string                  `xml:"CurrencyCode,attr,omitempty"`
	BaseByGuestAmts        *BaseByGuestAmts        `xml:"BaseByGuestAmts"`
	AdditionalGuestAmounts *AdditionalGuestAmounts `xml:"AdditionalGuestAmounts"`
}

type Rates struct {
	Rate []Rate `xml:"Rate"`
}

type RateAmountMessage struct {
	StatusApplicationControl *StatusApplicationControl `xml:"StatusApplicationControl"`
	Rates                    *Rates                    `xml:"Rates"`
}

type RateAmountMessages struct {
	HotelCode         string              `xml:"HotelCode,attr"`
	HotelName         string              `xml:"HotelName,attr,omitempty"`
	RateAmountMessage []RateAmountMessage `xml:"RateAmountMessage"`
}

type RateAmountNotifRQ struct {
	XMLName xml.Name `xml:"OTA_HotelRateAmountNotifRQ"`
	Header
	RateAmountMessages *RateAmountMessages `xml:"RateAmountMessages"`
}

type Error struct {
	Type    string `xml:"Type,attr"`
	Code    string `xml:"Code,attr"`
	Message string `xml:",chardata"`
}

type Errors struct {
	Error []Error `xml:"Error"`
}

// Response is the RS counterpart of any notification. XMLName is set per request root.
type Response struct {
	XMLName   xml.Name
	Xmlns     string    `xml:"xmlns,attr,omitempty"`
	EchoToken string    `xml:"EchoToken,attr"`
	TimeStamp string    `xml:"TimeStamp,attr"`
	Version   string    `xml:"Version,attr"`
	Success   *struct{} `xml:"Success"`
	Errors    *Errors   `xml:"Errors"`
}
