package pipeline

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	MessagesReceived atomic.Int64
	DecodeFailures   atomic.Int64
	StoreFailures    atomic.Int64
	TriggersEmitted  atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "ingestion_messages_received_total %d\n", MessagesReceived.Load())
	fmt.Fprintf(w, "ingestion_decode_failures_total %d\n", DecodeFailures.Load())
	fmt.Fprintf(w, "ingestion_store_failures_total %d\n", StoreFailures.Load())
	fmt.Fprintf(w, "ingestion_triggers_emitted_total %d\n", TriggersEmitted.Load())
}
