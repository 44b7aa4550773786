package metrics

import "expvar"

var (
	SignalsReceived  = expvar.NewInt("signals_received")
	SignalsRejected  = expvar.NewInt("signals_rejected")
	OrdersPlaced     = expvar.NewInt("orders_placed")
	OrdersCancelled  = expvar.NewInt("orders_cancelled")
	BrokerErrors     = expvar.NewInt("broker_errors")
	TokenRefreshes   = expvar.NewInt("token_refreshes")
	RefreshFailures  = expvar.NewInt("token_refresh_failures")
	JournalWriteErrs = expvar.NewInt("journal_write_errors")
)
