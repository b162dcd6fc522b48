package redis

const resultKeyPrefix = "result:"

// ResultKey is the key holding the URL behind a search result id
func ResultKey(resultID string) string {
	return resultKeyPrefix + resultID
}
