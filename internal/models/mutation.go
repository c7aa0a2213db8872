package models

// Mutation is one operation in a store transaction. Exactly one field is set.
type Mutation struct {
	Create            any `json:"create,omitempty"`
	CreateIfNotExists any `json:"createIfNotExists,omitempty"`
}

// Create returns a create mutation for doc.
func Create(doc any) Mutation {
	return Mutation{Create: doc}
}

// CreateIfNotExists returns a create-if-absent mutation for doc. The document
// must carry an _id; an existing document with that id is left untouched.
func CreateIfNotExists(doc any) Mutation {
	return Mutation{CreateIfNotExists: doc}
}

// Kind returns the operation name as used on the wire.
func (m Mutation) Kind() string {
	switch {
	case m.Create != nil:
		return "create"
	case m.CreateIfNotExists != nil:
		return "createIfNotExists"
	default:
		return ""
	}
}

// MutationResult is the store's per-operation result.
type MutationResult struct {
	ID        string `json:"id"`
	Operation string `json:"operation,omitempty"`
}

// TransactionResult is the store's response to a mutate call.
type TransactionResult struct {
	TransactionID string           `json:"transactionId"`
	Results       []MutationResult `json:"results"`
}

// Created reports how many operations created a new document.
func (r *TransactionResult) Created() int {
	n := 0
	for _, res := range r.Results {
		if res.Operation == "create" {
			n++
		}
	}
	return n
}
