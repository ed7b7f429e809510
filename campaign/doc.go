// Package campaign defines the campaign, agent, and contact entities and
// their persistence contracts.
//
// # Campaign Entity
//
// A Campaign is one configured outbound-calling run: a voice agent plus a
// contact list. Campaigns are created in draft and transition only through
// the execution state machine; terminal states (completed, failed,
// cancelled) are final.
//
// # Contact Entity
//
// A Contact is a callable target owned by a contact list. The dispatcher
// treats contacts as read-only except for recording the result of the most
// recent call attempt.
//
// # Store Contract
//
// The Store interface is the engine's CRUD contract against the relational
// system of record. A composite backend (store/memory, store/postgres)
// implements it alongside the attempt store.
package campaign
