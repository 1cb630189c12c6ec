package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ScoreModulePrefix 评分模块
	ScoreModulePrefix = "score"
	// BatchModulePrefix 批次模块
	BatchModulePrefix = "batch"

	// EntityResult 单份简历评分结果
	EntityResult = "result"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyScoreResult 简历评分结果缓存 (STRING, JSON)
	// 格式: app:score:result:{fingerprint}
	KeyScoreResult = AppPrefix + ":" + ScoreModulePrefix + ":" + EntityResult + ":%s"

	// KeyBatchLock 异步批次处理锁 (STRING)，防止同一批次被重复消费
	// 格式: app:batch:lock:{batchID}
	KeyBatchLock = AppPrefix + ":" + BatchModulePrefix + ":" + EntityLock + ":%s"
)
