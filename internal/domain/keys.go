package domain

// KeyPrefix namespaces every key drillscout writes to the shared store.
const KeyPrefix = "drillscout:"
