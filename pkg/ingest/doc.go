// Package ingest is the internal producer API: other services of the
// marketplace post notification events and device registrations here.
//
//	POST /notifications  {"user_id","type","title","body","data","channels","priority","mode"}
//	POST /devices        {"user_id","token","platform"}
//
// Callers are trusted; authentication is left to the network boundary.
// Accepted notifications answer 202 with the stored notification. Channel
// delivery failures never fail the request: they are queued for retry.
package ingest
