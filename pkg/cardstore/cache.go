package cardstore

// accountTable is the in-memory lookup cache fronting the disk store: a
// chained hash table keyed by identifier. Once warmed it is the single
// source of truth, so entries are never evicted except by explicit removal.
// The table is not safe for concurrent use; the store assumes a single
// active goroutine.
type accountTable struct {
	buckets []*cacheEntry
	count   int
}

// cacheEntry is one identifier-to-account binding inside a bucket chain.
// Insertion order within a chain is insignificant.
type cacheEntry struct {
	id      string
	account Account
	next    *cacheEntry
}

func newAccountTable() *accountTable {
	return &accountTable{buckets: make([]*cacheEntry, initialBucketCount)}
}

// hashIdentifier is the DJB2 recurrence over the identifier bytes.
func hashIdentifier(id string) uint64 {
	hash := uint64(hashSeed)
	for index := 0; index < len(id); index++ {
		hash = hash*33 + uint64(id[index])
	}
	return hash
}

// insert upserts an account. An existing binding for the same identifier is
// overwritten in place; a genuinely new key may first trigger a grow so the
// live-entry ratio never exceeds the load-factor threshold after the
// insert completes.
func (table *accountTable) insert(account Account) {
	id := account.ID.String()
	if entry := table.lookup(id); entry != nil {
		entry.account = account
		return
	}
	if (table.count+1)*4 > len(table.buckets)*3 {
		table.grow()
	}
	bucketIndex := hashIdentifier(id) % uint64(len(table.buckets))
	table.buckets[bucketIndex] = &cacheEntry{
		id:      id,
		account: account,
		next:    table.buckets[bucketIndex],
	}
	table.count++
}

// find returns the cached account for an identifier.
func (table *accountTable) find(id string) (Account, bool) {
	entry := table.lookup(id)
	if entry == nil {
		return Account{}, false
	}
	return entry.account, true
}

// update overwrites an existing binding and reports whether one was found;
// an absent key is inserted (upsert semantics, no must-pre-exist error
// path).
func (table *accountTable) update(account Account) bool {
	id := account.ID.String()
	if entry := table.lookup(id); entry != nil {
		entry.account = account
		return true
	}
	table.insert(account)
	return false
}

// remove splices the matching entry out of its chain and reports whether a
// match was found. Buckets only ever grow; there is no shrink-on-delete.
func (table *accountTable) remove(id string) bool {
	bucketIndex := hashIdentifier(id) % uint64(len(table.buckets))
	var previous *cacheEntry
	for entry := table.buckets[bucketIndex]; entry != nil; entry = entry.next {
		if entry.id != id {
			previous = entry
			continue
		}
		if previous == nil {
			table.buckets[bucketIndex] = entry.next
		} else {
			previous.next = entry.next
		}
		table.count--
		return true
	}
	return false
}

// clear drops every entry, keeping the current bucket array.
func (table *accountTable) clear() {
	for index := range table.buckets {
		table.buckets[index] = nil
	}
	table.count = 0
}

func (table *accountTable) lookup(id string) *cacheEntry {
	bucketIndex := hashIdentifier(id) % uint64(len(table.buckets))
	for entry := table.buckets[bucketIndex]; entry != nil; entry = entry.next {
		if entry.id == id {
			return entry
		}
	}
	return nil
}

// grow doubles the bucket array and rehashes every entry exactly once.
func (table *accountTable) grow() {
	grown := make([]*cacheEntry, len(table.buckets)*2)
	for _, head := range table.buckets {
		for entry := head; entry != nil; {
			next := entry.next
			bucketIndex := hashIdentifier(entry.id) % uint64(len(grown))
			entry.next = grown[bucketIndex]
			grown[bucketIndex] = entry
			entry = next
		}
	}
	table.buckets = grown
}
