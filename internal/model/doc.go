// Package model defines shared data types used across the firehose consumer.
//
// Conventions:
//   - Timestamps: int64 seconds since Unix epoch, UTC
//   - Prices: decimal.Decimal (feed publishes arbitrary-precision ISK values)
//   - Keys: orders are keyed by orderID within a (typeID, regionID) book,
//     history aggregates by (typeID, regionID)
package model
