// Package source defines the market-data provider contract consumed by the
// pipeline's fetch stage, plus the resty-backed HTTP implementation used for
// REST market APIs.
package source
