package internal

import "expvar"

var (
	requestsTotal    = expvar.NewMap("gitfeed_requests_total")
	ignoredTotal     = expvar.NewMap("gitfeed_ignored_total")
	storedTotal      = expvar.NewMap("gitfeed_stored_total")
	storeErrorsTotal = expvar.NewMap("gitfeed_store_errors_total")
	publishErrors    = expvar.NewMap("gitfeed_publish_errors_total")
)

func IncRequest(provider string) {
	requestsTotal.Add(provider, 1)
}

func IncIgnored(provider string) {
	ignoredTotal.Add(provider, 1)
}

func IncStored(action string) {
	storedTotal.Add(action, 1)
}

func IncStoreError(provider string) {
	storeErrorsTotal.Add(provider, 1)
}

func IncPublishError(topic string) {
	publishErrors.Add(topic, 1)
}
