package kafka

// TopicPrefix namespaces every topic the storefront writes to.
const TopicPrefix = "storefront"

// Topic builds a topic name such as "storefront.cart.updated".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
