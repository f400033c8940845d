package redis

import "strings"

// Every key lives under the "ck" namespace followed by its purpose, so one
// Redis database can be shared by the API and the workers.
const keyNamespace = "ck"

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

func (c *Client) AccessSessionKey(accessID string) string { return key("session", "access", accessID) }

func (c *Client) CacheKey(namespace, k string) string { return key("cache", namespace, k) }

// CacheTagKey names the generation counter for tag.
func (c *Client) CacheTagKey(namespace, tag string) string {
	return key("cache", namespace, "tag", tag)
}

func (c *Client) LockKey(name string) string { return key("lock", name) }
