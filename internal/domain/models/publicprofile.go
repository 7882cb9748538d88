package models

// PublicProfile is the minimal, non-sensitive projection of a user
// (public_profiles collection). It is safe to read without authorization and
// exists so group listings can show leader names without exposing contact
// info. The document _id is the owning user's ObjectID.
type PublicProfile struct {
	UID         string `bson:"_id" json:"uid"`
	DisplayName string `bson:"display_name" json:"displayName"`
}
