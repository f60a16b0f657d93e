package domain

// Rating mirrors a tenant's current rating of an agent in a standalone
// record. It references both parties but is owned by neither; account
// deletion removes it explicitly. At most one record should exist per
// (tenant, agent) pair, enforced by a lookup-then-create in the review
// service, not by the store.
type Rating struct {
	RatingID     string `json:"id" dynamodbav:"rating_id"`
	TenantID     string `json:"tenant_id" dynamodbav:"tenant_id"`
	AgentID      string `json:"agent_id" dynamodbav:"agent_id"`
	TenantRating int    `json:"tenant_rating" dynamodbav:"tenant_rating"`
}
