package domain

// KeyPrefix namespaces every key querygen writes to the cache store.
const KeyPrefix = "querygen:"

// DefaultModel is used when neither config nor flags name a model.
const DefaultModel = "deepseek-r1:1.5b"
