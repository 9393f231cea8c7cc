// Package bondbt replays a chronological stream of bond orders against a
// cash-and-holdings ledger and values the resulting position over time.
//
// The core types are:
//   - Position: the ledger, an append-only sequence of Snapshot, mutated only
//     by ApplyOrder and by the coupon payments it discovers on the way.
//   - MarketData: the narrow interface through which settlement prices,
//     payment schedules and trading calendars are read. Market is the
//     in-memory implementation, loaded from a JSONL folder.
//   - Backtest: the driver that applies a list of Order to a fresh Position
//     and, on request, computes the daily value Series.
//
// Prices and yields of individual bonds are computed by the bond package.
//
// This package serves as the foundational logic for the `bondbt`
// command-line tool.
package bondbt
