// Package entity_type_enum NER 分类器输出的实体类型
package entity_type_enum

const (
	OrderNumber   = "Order Number"
	RefundAmount  = "Refund Amount"
	Amount        = "Amount"
	Product       = "Product"
	Quantity      = "Quantity"
	Email         = "Email"
	Phone         = "Phone"
	TransactionID = "Transaction ID"
	RefundID      = "Refund ID"
)

// All 全部实体类型，顺序即会话卡片中的展示顺序
var All = []string{OrderNumber, RefundAmount, Amount, Product, Quantity, Email, Phone, TransactionID, RefundID}

// aliases 分类器常见的 snake_case 写法
var aliases = map[string]string{
	"order_number":   OrderNumber,
	"refund_amount":  RefundAmount,
	"amount":         Amount,
	"product":        Product,
	"quantity":       Quantity,
	"email":          Email,
	"phone":          Phone,
	"transaction_id": TransactionID,
	"refund_id":      RefundID,
}

// Normalize 将实体类型规范化为标准标签，未知类型返回 false
func Normalize(entityType string) (string, bool) {
	for _, t := range All {
		if t == entityType {
			return t, true
		}
	}
	if t, ok := aliases[entityType]; ok {
		return t, true
	}
	return "", false
}
