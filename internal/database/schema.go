package database

// The unique indexes on orders.order_id and payments.order_id are load-bearing:
// payments.order_id is the idempotency gate for settlement, and the tokens
// check constraint is the last line of defense against a negative balance.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL UNIQUE,
    tokens INT NOT NULL DEFAULT 0 CHECK (tokens >= 0),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    role TEXT NOT NULL DEFAULT 'user',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS token_packages (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    tokens INT NOT NULL,
    price INT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'INR',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    order_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL REFERENCES users(id),
    package_id TEXT NOT NULL REFERENCES token_packages(id),
    plan_name TEXT NOT NULL,
    amount INT NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    order_id TEXT NOT NULL UNIQUE,
    order_internal_id TEXT NOT NULL REFERENCES orders(id),
    amount INT NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL,
    payment_method TEXT,
    payment_time TIMESTAMPTZ,
    failure_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS videos (
    id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    user_id TEXT NOT NULL REFERENCES users(id),
    prompt TEXT NOT NULL,
    aspect_ratio TEXT NOT NULL,
    seed INT NOT NULL DEFAULT 0,
    image_url TEXT,
    video_url TEXT NOT NULL DEFAULT '',
    video_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'generating',
    tokens_used INT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_videos_user_id ON videos(user_id);
CREATE INDEX IF NOT EXISTS idx_videos_video_id ON videos(video_id);

CREATE TABLE IF NOT EXISTS images (
    id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    user_id TEXT NOT NULL REFERENCES users(id),
    prompt TEXT NOT NULL,
    aspect_ratio TEXT NOT NULL,
    image_url TEXT NOT NULL,
    image_id TEXT NOT NULL,
    tokens_used INT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_images_user_id ON images(user_id);
`

const seedPackages = `
INSERT INTO token_packages (id, name, description, tokens, price, currency, is_active) VALUES
    ('starter', 'Starter', 'Perfect for trying out video generation', 10, 150, 'INR', TRUE),
    ('growth', 'Growth', 'Great for content creators and small businesses', 50, 650, 'INR', TRUE),
    ('pro', 'Pro', 'Best value for regular users', 120, 1440, 'INR', TRUE),
    ('agency', 'Agency', 'For heavy usage and teams', 300, 3300, 'INR', TRUE)
ON CONFLICT (id) DO NOTHING;
`
