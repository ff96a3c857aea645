package graph

import "bookmap/backend/internal/geo"

// ============================================================================
// Cypher
// ============================================================================
//
// Labels cannot be query parameters, so every label that varies by kind is
// spelled out in a table keyed by geo.Kind or geo.Pair. Caller strings only
// ever reach Cypher as parameters.

const cityProjection = `{.uid, .name, .latitude, .longitude, .coordinate_key, .geohash, .s2_cell}`

const (
	queryMergeCountry = `
		MERGE (c:Country {name: $name})
		ON CREATE SET c.uid = $uid, c.created_at = datetime()
		RETURN c {.uid, .name} AS country, c.uid = $uid AS created
	`

	queryLockIdentity = `
		MERGE (l:IdentityLock {key: $key})
		SET l.held_at = timestamp()
	`

	queryFindRegion = `
		MATCH (r:Region {name: $name})-[:WITHIN]->(:Country {uid: $countryUID})
		RETURN r {.uid, .name} AS region
		ORDER BY r.created_at
		LIMIT 1
	`

	queryCreateRegion = `
		CREATE (r:Region {uid: $uid, name: $name, created_at: datetime()})
		RETURN r {.uid, .name} AS region
	`

	queryFindCityByKey = `
		MATCH (c:City {coordinate_key: $key})
		RETURN c ` + cityProjection + ` AS city
		LIMIT 1
	`

	queryCreateCity = `
		CREATE (c:City {uid: $uid, name: $name, created_at: datetime()})
		SET c.latitude = $latitude,
		    c.longitude = $longitude,
		    c.coordinate_key = $key,
		    c.geohash = $geohash,
		    c.s2_cell = $cell
		RETURN c ` + cityProjection + ` AS city
	`

	querySetCityCoordinates = `
		MATCH (c:City {uid: $uid})
		WHERE c.coordinate_key IS NULL
		SET c.latitude = $latitude,
		    c.longitude = $longitude,
		    c.coordinate_key = $key,
		    c.geohash = $geohash,
		    c.s2_cell = $cell
		RETURN c ` + cityProjection + ` AS city
	`

	queryMergeAuthor = `
		MERGE (a:Author {goodreads_id: $goodreadsID})
		ON CREATE SET a.name = $name,
		              a.goodreads_link = $link,
		              a.created_at = datetime()
		RETURN a {.goodreads_id, .name, .goodreads_link} AS author
	`

	queryBirthCity = `
		MATCH (:Author {goodreads_id: $goodreadsID})-[:BORN_IN]->(c:City)
		RETURN c ` + cityProjection + ` AS city
		LIMIT 1
	`

	queryCreateBornIn = `
		MATCH (a:Author {goodreads_id: $goodreadsID}), (c:City {uid: $cityUID})
		CREATE (a)-[:BORN_IN]->(c)
		RETURN count(*) AS linked
	`
)

// cityUnderQueries finds same-named cities directly under a parent. Cities
// with coordinates sort first so name-keyed records prefer them.
var cityUnderQueries = map[geo.Kind]string{
	geo.KindRegion: `
		MATCH (c:City {name: $name})-[:WITHIN]->(:Region {uid: $parentUID})
		RETURN c ` + cityProjection + ` AS city
		ORDER BY c.coordinate_key IS NULL, c.created_at
	`,
	geo.KindCountry: `
		MATCH (c:City {name: $name})-[:WITHIN]->(:Country {uid: $parentUID})
		RETURN c ` + cityProjection + ` AS city
		ORDER BY c.coordinate_key IS NULL, c.created_at
	`,
}

// parentQueries returns the direct WITHIN parent of a node
var parentQueries = map[geo.Kind]string{
	geo.KindCity: `
		MATCH (:City {uid: $uid})-[:WITHIN]->(p)
		RETURN p {.uid, .name, labels: labels(p)} AS parent
		LIMIT 1
	`,
	geo.KindRegion: `
		MATCH (:Region {uid: $uid})-[:WITHIN]->(p)
		RETURN p {.uid, .name, labels: labels(p)} AS parent
		LIMIT 1
	`,
}

// linkQueries creates the WITHIN edge for each valid pair
var linkQueries = map[geo.Pair]string{
	geo.CityInRegion: `
		MATCH (c:City {uid: $childUID}), (p:Region {uid: $parentUID})
		CREATE (c)-[:WITHIN]->(p)
		RETURN count(*) AS linked
	`,
	geo.CityInCountry: `
		MATCH (c:City {uid: $childUID}), (p:Country {uid: $parentUID})
		CREATE (c)-[:WITHIN]->(p)
		RETURN count(*) AS linked
	`,
	geo.RegionInCountry: `
		MATCH (c:Region {uid: $childUID}), (p:Country {uid: $parentUID})
		CREATE (c)-[:WITHIN]->(p)
		RETURN count(*) AS linked
	`,
}

// existsQueries backs the hierarchy existence predicates. They match by name
// on both sides, exactly like the public predicates promise.
var existsQueries = map[geo.Pair]string{
	geo.CityInRegion: `
		MATCH (:City {name: $child})-[:WITHIN]->(:Region {name: $parent})
		RETURN count(*) > 0 AS found
	`,
	geo.CityInCountry: `
		MATCH (:City {name: $child})-[:WITHIN]->(:Country {name: $parent})
		RETURN count(*) > 0 AS found
	`,
	geo.RegionInCountry: `
		MATCH (:Region {name: $child})-[:WITHIN]->(:Country {name: $parent})
		RETURN count(*) > 0 AS found
	`,
}

// ancestorQueries walk from an author's birth city up to the requested kind
var ancestorQueries = map[geo.Kind]string{
	geo.KindRegion: `
		MATCH (:Author {goodreads_id: $goodreadsID})-[:BORN_IN]->(:City)-[:WITHIN]->(n:Region)
		RETURN n {.uid, .name, labels: labels(n)} AS node
		LIMIT 1
	`,
	geo.KindCountry: `
		MATCH (:Author {goodreads_id: $goodreadsID})-[:BORN_IN]->(:City)-[:WITHIN*1..2]->(n:Country)
		RETURN n {.uid, .name, labels: labels(n)} AS node
		LIMIT 1
	`,
}

// schemaStatements are idempotent thanks to IF NOT EXISTS; "already exists"
// errors from older servers are ignored by EnsureSchema.
var schemaStatements = []string{
	`CREATE CONSTRAINT country_name IF NOT EXISTS FOR (c:Country) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT country_uid IF NOT EXISTS FOR (c:Country) REQUIRE c.uid IS UNIQUE`,
	`CREATE CONSTRAINT region_uid IF NOT EXISTS FOR (r:Region) REQUIRE r.uid IS UNIQUE`,
	`CREATE CONSTRAINT city_uid IF NOT EXISTS FOR (c:City) REQUIRE c.uid IS UNIQUE`,
	`CREATE CONSTRAINT city_coordinate_key IF NOT EXISTS FOR (c:City) REQUIRE c.coordinate_key IS UNIQUE`,
	`CREATE CONSTRAINT author_goodreads_id IF NOT EXISTS FOR (a:Author) REQUIRE a.goodreads_id IS UNIQUE`,
	`CREATE CONSTRAINT author_goodreads_link IF NOT EXISTS FOR (a:Author) REQUIRE a.goodreads_link IS UNIQUE`,
	`CREATE CONSTRAINT identity_lock_key IF NOT EXISTS FOR (l:IdentityLock) REQUIRE l.key IS UNIQUE`,
	`CREATE INDEX region_name IF NOT EXISTS FOR (r:Region) ON (r.name)`,
	`CREATE INDEX city_name IF NOT EXISTS FOR (c:City) ON (c.name)`,
}
