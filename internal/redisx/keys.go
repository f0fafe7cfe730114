package redisx

import "time"

const (
	// Idempotent sale commit: idem:sale:commit:{key} -> sale_id
	KeyIdemSaleCommit = "idem:sale:commit:%s"
)

var TTLIdempotency = 24 * time.Hour
