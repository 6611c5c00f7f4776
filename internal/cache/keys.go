package cache

import "fmt"

func NamespaceTreeKey(tenant string) string {
	return fmt.Sprintf("tree:%s", tenant)
}

func RateLimitKey(tenant string) string {
	return fmt.Sprintf("ratelimit:%s", tenant)
}
