package feed

// columnNotFound marks a logical column whose header is absent from the
// payload. Downstream lookups through row.cell treat it as an absent
// value for every row, never as an error.
const columnNotFound = -1

// columnFallbacks lists the header names tried for each logical column,
// in priority order. The host system renames columns between sub-views,
// so each logical field carries the aliases observed in the wild.
var (
	typeTextHeaders = []string{"ORDER_TYPE_TEXT", "ACTUAL_ORDER_TYPE", "ORDER_TYPE", "DELIVERY_TYPE"}
	typeCodeHeaders = []string{"ORDER_TYPE"}
	statusHeaders   = []string{"STATUS_TEXT", "TXT_STATUS", "GBSTK", "OVERALL_STATUS", "STATUS"}
	orderIDHeaders  = []string{"ORDER_ID", "SALES_ORDER"}
	isHeaderHeaders = []string{"IS_HEADER"}
	dateTimeHeaders = []string{"WADAT_IST", "PICK_DATE", "TIME_STAMP", "CREATED_AT", "DATE", "TIME", "CREATED_DATE"}
	customerHeaders = []string{"CUSTOMER_NAME", "NAME", "PARTNER_NAME", "BUYER_NAME", "KUNNR_NAME"}
)

// columns holds the resolved index of each logical column, or
// columnNotFound where no alias matched.
type columns struct {
	typeText int
	typeCode int
	status   int
	orderID  int
	isHeader int
	dateTime int
	customer int
}

// resolveColumns maps header names to logical column indexes. Headers
// are matched by exact string equality, first alias wins.
func resolveColumns(headers []string) columns {
	find := func(aliases []string) int {
		for _, name := range aliases {
			for i, h := range headers {
				if h == name {
					return i
				}
			}
		}
		return columnNotFound
	}

	return columns{
		typeText: find(typeTextHeaders),
		typeCode: find(typeCodeHeaders),
		status:   find(statusHeaders),
		orderID:  find(orderIDHeaders),
		isHeader: find(isHeaderHeaders),
		dateTime: find(dateTimeHeaders),
		customer: find(customerHeaders),
	}
}

// HasOrderID reports whether a real order-id column resolved. Without
// one, aggregation falls back to positional synthetic ids and cross-row
// dedup degrades to a no-op.
func (c columns) HasOrderID() bool { return c.orderID != columnNotFound }
