package model

// QueueType is a logical queue partition with its own ticket numbering
// and average per-customer service time.
type QueueType string

const (
	QueueTypeCaja           QueueType = "CAJA"
	QueueTypePersonalBanker QueueType = "PERSONAL_BANKER"
	QueueTypeEmpresas       QueueType = "EMPRESAS"
	QueueTypeGerencia       QueueType = "GERENCIA"
)

type queueTypeInfo struct {
	prefix      byte
	displayName string
	avgMinutes  int
}

var queueTypes = map[QueueType]queueTypeInfo{
	QueueTypeCaja:           {'C', "Caja", 5},
	QueueTypePersonalBanker: {'P', "Personal Banker", 15},
	QueueTypeEmpresas:       {'E', "Empresas", 20},
	QueueTypeGerencia:       {'G', "Gerencia", 30},
}

// AllQueueTypes returns every known queue type in a stable order.
func AllQueueTypes() []QueueType {
	return []QueueType{QueueTypeCaja, QueueTypePersonalBanker, QueueTypeEmpresas, QueueTypeGerencia}
}

func (q QueueType) Valid() bool {
	_, ok := queueTypes[q]
	return ok
}

// Prefix is the single character prepended to the per-queue ticket sequence.
func (q QueueType) Prefix() byte {
	return queueTypes[q].prefix
}

func (q QueueType) DisplayName() string {
	return queueTypes[q].displayName
}

// AvgServiceMinutes is the average time an advisor spends on one ticket
// of this queue, used for wait estimates.
func (q QueueType) AvgServiceMinutes() int {
	return queueTypes[q].avgMinutes
}
