package revocation

import "github.com/fxamacker/cbor/v2"

// AggregationDoc is a discovery document listing every active
// status-list credential URL for a credential type, supplementing the
// single-list view spec.md's distillation describes. Grounded on the
// aggregation_uri concept in draft-ietf-oauth-status-list, as implemented
// for CWT status lists by the teacher's tokenstatuslist package.
type AggregationDoc struct {
	CredentialType           string   `json:"credentialType" cbor:"1,keyasint"`
	StatusListCredentialUrls []string `json:"statusListCredentialUrls" cbor:"2,keyasint"`
}

// NewAggregationDoc builds an AggregationDoc for credentialType over urls.
func NewAggregationDoc(credentialType string, urls []string) AggregationDoc {
	if urls == nil {
		urls = []string{}
	}
	return AggregationDoc{CredentialType: credentialType, StatusListCredentialUrls: urls}
}

// EncodeCBOR renders the aggregation document in CBOR, for callers that
// publish it alongside (or instead of) the JSON form.
func EncodeCBOR(doc AggregationDoc) ([]byte, error) {
	return cbor.Marshal(doc)
}

// DecodeAggregationDocCBOR parses a CBOR-encoded AggregationDoc.
func DecodeAggregationDocCBOR(data []byte) (*AggregationDoc, error) {
	var doc AggregationDoc
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
