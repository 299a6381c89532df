package db

// sessionTables lists the tables SchemaSQL defines, children first.
var sessionTables = []string{"turn", "shared_topic", "conversation"}

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- CONVERSATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS persona ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON conversation TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON conversation TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- TURN TABLE
    -- ==========================================================================
    -- social holds the candidate shown with an assistant turn; the share
    -- cooldown is derived from it.
    DEFINE TABLE IF NOT EXISTS turn SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON turn TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON turn TYPE string ASSERT $value IN ["user", "assistant"];
    DEFINE FIELD IF NOT EXISTS content ON turn TYPE string;
    DEFINE FIELD IF NOT EXISTS social ON turn TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON turn TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS turn_conversation ON turn FIELDS conversation, created_at;

    -- ==========================================================================
    -- SHARED TOPIC TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS shared_topic SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON shared_topic TYPE string;
    DEFINE FIELD IF NOT EXISTS topic ON shared_topic TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON shared_topic TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS shared_topic_unique ON shared_topic FIELDS conversation, topic UNIQUE;
`
