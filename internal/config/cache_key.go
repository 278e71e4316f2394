package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateTicketKey returns the cache key holding the active ticket id for a candidate
func (r *CacheKeyStruct) CandidateTicketKey(candidateID string) string {
	return fmt.Sprintf("candidate:%s:ticket", candidateID)
}

// QuestionListKey returns the cache key for the loaded question bank
func (r *CacheKeyStruct) QuestionListKey() string {
	return "test:questions"
}

// SessionConfigKey returns the cache key for the test control record
func (r *CacheKeyStruct) SessionConfigKey() string {
	return "test:control"
}

// InstanceChannel returns the Pub/Sub channel on which instances of one
// candidate's session announce themselves
func (r *CacheKeyStruct) InstanceChannel(scope string) string {
	return fmt.Sprintf("proctor:instances:%s", scope)
}

// InstanceHeartbeatPrefix returns the key prefix shared by heartbeat keys of one scope
func (r *CacheKeyStruct) InstanceHeartbeatPrefix(scope string) string {
	return fmt.Sprintf("proctor:tab:%s:", scope)
}

// InstanceHeartbeatKey returns the heartbeat key of a single instance
func (r *CacheKeyStruct) InstanceHeartbeatKey(scope, instanceID string) string {
	return r.InstanceHeartbeatPrefix(scope) + instanceID
}

var CacheKey = NewCacheKeyStruct()
