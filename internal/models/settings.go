package models

// Settings is the single global settings row. SystemStatus drives the
// test/live amount policy: "0" means the payment processor sandbox is in
// use and mandate amounts must be capped.
type Settings struct {
	SystemStatus string `json:"systemStatus"`
}
