package sales

import "strconv"

const (
	TopicSaleCommitted = "kiosk.sale.committed"
	TopicSaleReversed  = "kiosk.sale.reversed"
)

// Partition key = sale id, so a sale's commit and reversal stay ordered.
func PartitionKey(saleID int64) []byte { return []byte(strconv.FormatInt(saleID, 10)) }
